package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrTableNotFound 目录中不存在该表
var ErrTableNotFound = errors.New("schema: table not found")

// Column 目录报告的单列信息
type Column struct {
	Position   int
	Name       string
	Type       string
	NotNull    bool
	Default    *string
	PrimaryKey bool
}

// HasDefault 列是否带默认值（含自增序列）
func (c Column) HasDefault() bool {
	return c.Default != nil
}

// Required 插入时必须显式提供的列：NOT NULL、无默认值、非主键
func (c Column) Required() bool {
	return c.NotNull && !c.HasDefault() && !c.PrimaryKey
}

// ColumnSet 某张表的有序列集合
type ColumnSet struct {
	Table   string
	columns []Column
	byName  map[string]int
}

// NewColumnSet 按目录顺序构建列集合
func NewColumnSet(table string, cols []Column) ColumnSet {
	s := ColumnSet{Table: table, columns: cols, byName: make(map[string]int, len(cols))}
	for i, c := range cols {
		s.byName[c.Name] = i
	}
	return s
}

// Has 列是否存在
func (s ColumnSet) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// HasAll 所有列均存在
func (s ColumnSet) HasAll(names ...string) bool {
	for _, n := range names {
		if !s.Has(n) {
			return false
		}
	}
	return true
}

// Get 按名称取列
func (s ColumnSet) Get(name string) (Column, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// Columns 返回目录顺序的列（副本）
func (s ColumnSet) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// Names 返回目录顺序的列名
func (s ColumnSet) Names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// Len 列数
func (s ColumnSet) Len() int { return len(s.columns) }

// PrimaryKey 第一个主键列名；无主键时返回空串
func (s ColumnSet) PrimaryKey() string {
	for _, c := range s.columns {
		if c.PrimaryKey {
			return c.Name
		}
	}
	return ""
}

// Inspector 读取实时表结构（纯读，无副作用）
type Inspector struct {
	db      *gorm.DB
	dialect Dialect
}

// NewInspector 创建 Inspector
func NewInspector(db *gorm.DB) *Inspector {
	return &Inspector{db: db, dialect: DialectOf(db)}
}

// WithDB 绑定到另一个连接（通常是事务），使事务内的检查看到事务视图
func (i *Inspector) WithDB(db *gorm.DB) *Inspector {
	return &Inspector{db: db, dialect: i.dialect}
}

// Dialect 当前方言
func (i *Inspector) Dialect() Dialect { return i.dialect }

// Columns 读取表的列信息；表不存在时返回 ErrTableNotFound
func (i *Inspector) Columns(ctx context.Context, table string) (ColumnSet, error) {
	if err := checkIdent(table); err != nil {
		return ColumnSet{}, err
	}

	var (
		cols []Column
		err  error
	)
	if i.dialect == DialectPostgres {
		cols, err = i.postgresColumns(ctx, table)
	} else {
		cols, err = i.sqliteColumns(ctx, table)
	}
	if err != nil {
		return ColumnSet{}, fmt.Errorf("schema: inspect %s: %w", table, err)
	}
	if len(cols) == 0 {
		return ColumnSet{}, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return NewColumnSet(table, cols), nil
}

func (i *Inspector) sqliteColumns(ctx context.Context, table string) ([]Column, error) {
	rows, err := i.db.WithContext(ctx).Raw("PRAGMA table_info(" + quote(table) + ")").Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			cid      int
			name     string
			dataType string
			notNull  int
			dflt     sql.NullString
			pk       int
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		col := Column{
			Position:   cid,
			Name:       name,
			Type:       dataType,
			NotNull:    notNull != 0,
			PrimaryKey: pk > 0,
		}
		if dflt.Valid {
			v := dflt.String
			col.Default = &v
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

const postgresColumnsSQL = `
SELECT c.ordinal_position, c.column_name, c.data_type, c.is_nullable, c.column_default,
       EXISTS (
           SELECT 1
           FROM information_schema.table_constraints tc
           JOIN information_schema.key_column_usage k
             ON tc.constraint_name = k.constraint_name AND tc.table_schema = k.table_schema
           WHERE tc.constraint_type = 'PRIMARY KEY'
             AND tc.table_schema = c.table_schema
             AND tc.table_name = c.table_name
             AND k.column_name = c.column_name
       ) AS is_pk
FROM information_schema.columns c
WHERE c.table_schema = current_schema() AND c.table_name = ?
ORDER BY c.ordinal_position`

func (i *Inspector) postgresColumns(ctx context.Context, table string) ([]Column, error) {
	rows, err := i.db.WithContext(ctx).Raw(postgresColumnsSQL, table).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			pos      int
			name     string
			dataType string
			nullable string
			dflt     sql.NullString
			pk       bool
		)
		if err := rows.Scan(&pos, &name, &dataType, &nullable, &dflt, &pk); err != nil {
			return nil, err
		}
		col := Column{
			Position:   pos,
			Name:       name,
			Type:       dataType,
			NotNull:    nullable == "NO",
			PrimaryKey: pk,
		}
		if dflt.Valid {
			v := dflt.String
			col.Default = &v
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

// HasTable 表是否存在
func (i *Inspector) HasTable(ctx context.Context, table string) (bool, error) {
	if err := checkIdent(table); err != nil {
		return false, err
	}
	query := "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	if i.dialect == DialectPostgres {
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?"
	}
	var n int64
	if err := i.db.WithContext(ctx).Raw(query, table).Scan(&n).Error; err != nil {
		return false, fmt.Errorf("schema: lookup table %s: %w", table, err)
	}
	return n > 0, nil
}

// HasIndex 索引是否存在
func (i *Inspector) HasIndex(ctx context.Context, index string) (bool, error) {
	if err := checkIdent(index); err != nil {
		return false, err
	}
	query := "SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?"
	if i.dialect == DialectPostgres {
		query = "SELECT COUNT(*) FROM pg_indexes WHERE schemaname = current_schema() AND indexname = ?"
	}
	var n int64
	if err := i.db.WithContext(ctx).Raw(query, index).Scan(&n).Error; err != nil {
		return false, fmt.Errorf("schema: lookup index %s: %w", index, err)
	}
	return n > 0, nil
}

// RowCount 表行数
func (i *Inspector) RowCount(ctx context.Context, table string) (int64, error) {
	if err := checkIdent(table); err != nil {
		return 0, err
	}
	var n int64
	if err := i.db.WithContext(ctx).Raw("SELECT COUNT(*) FROM " + quote(table)).Scan(&n).Error; err != nil {
		return 0, fmt.Errorf("schema: count %s: %w", table, err)
	}
	return n, nil
}
