package schema

import (
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"
)

// Dialect 数据库方言；决定目录查询语句与 DDL 类型写法
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DialectOf 根据 gorm 连接识别方言
func DialectOf(db *gorm.DB) Dialect {
	if db != nil && db.Dialector != nil && db.Dialector.Name() == "postgres" {
		return DialectPostgres
	}
	return DialectSQLite
}

// ColumnType 逻辑列类型，由方言渲染为具体 DDL 类型
type ColumnType int

const (
	TypeInteger ColumnType = iota
	TypeText
	TypeReal
	TypeBool
	TypeTime
	TypeJSON
)

// SQLType 渲染列类型
func (d Dialect) SQLType(t ColumnType) string {
	if d == DialectPostgres {
		switch t {
		case TypeInteger:
			return "BIGINT"
		case TypeReal:
			return "NUMERIC(10,2)"
		case TypeBool:
			return "BOOLEAN"
		case TypeTime:
			return "TIMESTAMP"
		case TypeJSON:
			return "JSONB"
		default:
			return "TEXT"
		}
	}
	switch t {
	case TypeInteger, TypeBool:
		return "INTEGER"
	case TypeReal:
		return "REAL"
	case TypeTime:
		return "DATETIME"
	default:
		return "TEXT"
	}
}

// PrimaryKeyDDL 自增主键列定义
func (d Dialect) PrimaryKeyDDL() string {
	if d == DialectPostgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// DefaultLiteral 渲染默认值；布尔默认值在 SQLite 中为 1/0
func (d Dialect) DefaultLiteral(t ColumnType, def string) string {
	if t == TypeBool {
		truthy := def == "true" || def == "1"
		if d == DialectPostgres {
			if truthy {
				return "TRUE"
			}
			return "FALSE"
		}
		if truthy {
			return "1"
		}
		return "0"
	}
	return def
}

// IsDuplicateColumn 判断 ADD COLUMN 是否因列已存在而失败（并发启动的竞态）
func (d Dialect) IsDuplicateColumn(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate column") ||
		strings.Contains(msg, "already exists") ||
		strings.Contains(msg, "Duplicate column name") ||
		strings.Contains(msg, "SQLSTATE 42701")
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// quote 引用标识符；调用方须先经 checkIdent 校验
func quote(ident string) string {
	return `"` + ident + `"`
}

func checkIdent(idents ...string) error {
	for _, id := range idents {
		if !identPattern.MatchString(id) {
			return fmt.Errorf("schema: invalid identifier %q", id)
		}
	}
	return nil
}
