package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"edu-platform/internal/schema"
	pkgerrors "edu-platform/pkg/errors"
)

// dynamicTable 结构可能漂移的表：每次请求读取实际列，再由 Builder 生成 SQL
type dynamicTable struct {
	db        *gorm.DB
	name      string
	inspector *schema.Inspector
	builder   *schema.Builder
}

func newDynamicTable(db *gorm.DB, name string, aliases schema.Aliases) dynamicTable {
	return dynamicTable{
		db:        db,
		name:      name,
		inspector: schema.NewInspector(db),
		builder:   schema.NewBuilder(aliases),
	}
}

func (t dynamicTable) columns(ctx context.Context) (schema.ColumnSet, error) {
	return t.inspector.Columns(ctx, t.name)
}

// insert 插入一行并返回新 id
// 已处于事务中时插入包在保存点里：失败只回滚这一条语句，
// PostgreSQL 下外层事务不会进入 aborted 状态，调用方仍可继续查询
func (t dynamicTable) insert(ctx context.Context, values map[string]any) (int64, error) {
	cols, err := t.columns(ctx)
	if err != nil {
		return 0, err
	}
	stmt, err := t.builder.BuildInsert(t.name, cols, values)
	if err != nil {
		return 0, err
	}

	var id int64
	err = t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if stmt.Returning == "" {
			return tx.Exec(stmt.SQL, stmt.Args...).Error
		}
		return tx.Raw(stmt.SQL, stmt.Args...).Scan(&id).Error
	})
	if err != nil {
		return 0, translate(err)
	}
	return id, nil
}

func (t dynamicTable) query(ctx context.Context, stmt schema.Statement) ([]map[string]any, error) {
	var rows []map[string]any
	if err := t.db.WithContext(ctx).Raw(stmt.SQL, stmt.Args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (t dynamicTable) exec(ctx context.Context, stmt schema.Statement) (int64, error) {
	res := t.db.WithContext(ctx).Exec(stmt.SQL, stmt.Args...)
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}

// translate 把唯一约束冲突转换为 ConstraintError，其余错误原样返回
func translate(err error) error {
	if pkgerrors.IsUniqueViolation(err) {
		return &pkgerrors.ConstraintError{Field: pkgerrors.UniqueField(err), Err: err}
	}
	return err
}

// ── 行解码 ──
// 不同驱动对同一列类型返回的 Go 类型不同（int64 / float64 / string / []byte / time.Time）

type row map[string]any

func (r row) has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

func (r row) str(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// first 返回第一个非空列的值
func (r row) first(keys ...string) string {
	for _, k := range keys {
		if s := r.str(k); s != "" {
			return s
		}
	}
	return ""
}

func (r row) integer(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string, []byte:
		n, _ := strconv.ParseInt(strings.TrimSpace(r.str(key)), 10, 64)
		return n
	}
	return 0
}

func (r row) integerPtr(key string) *int64 {
	if !r.has(key) {
		return nil
	}
	n := r.integer(key)
	return &n
}

func (r row) float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case string, []byte:
		f, _ := strconv.ParseFloat(strings.TrimSpace(r.str(key)), 64)
		return f
	}
	return 0
}

// boolean 缺失的列按 def 处理
func (r row) boolean(key string, def bool) bool {
	if !r.has(key) {
		return def
	}
	switch v := r[key].(type) {
	case bool:
		return v
	case string, []byte:
		s := strings.ToLower(r.str(key))
		return s == "1" || s == "true" || s == "t"
	}
	return r.integer(key) != 0
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (r row) timestamp(key string) *time.Time {
	switch v := r[key].(type) {
	case time.Time:
		return &v
	case string, []byte:
		s := r.str(key)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return &t
			}
		}
	}
	return nil
}

// isNotFound 判断是否为“记录不存在”
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
