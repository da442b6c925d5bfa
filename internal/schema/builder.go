package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// MissingColumnError 插入未覆盖表中必填列（NOT NULL、无默认值、非主键），或所需列不存在
type MissingColumnError struct {
	Table   string
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("schema: missing required column(s) %s on %s", strings.Join(e.Columns, ", "), e.Table)
}

var (
	// ErrNoIdentifierColumn 表中既无 username 也无 email
	ErrNoIdentifierColumn = errors.New("schema: no identifier column")
	// ErrNothingToWrite 过滤后没有可写入的列
	ErrNothingToWrite = errors.New("schema: no writable columns")
)

// Aliases 同义列分组；组内顺序即优先级
type Aliases [][]string

// IdentifierAliases 选课、订单相关表的学员/课程标识列
var IdentifierAliases = Aliases{
	{"user_id", "student_id"},
	{"course_id", "product_id"},
}

func (a Aliases) candidates(logical string) []string {
	for _, group := range a {
		for _, name := range group {
			if name == logical {
				return group
			}
		}
	}
	return []string{logical}
}

// Statement 渲染后的 SQL；占位符为 ?，由 gorm 按方言转换
type Statement struct {
	SQL       string
	Args      []any
	Returning string
}

// Builder 按实际存在的列生成 SQL
type Builder struct {
	aliases Aliases
	sb      sq.StatementBuilderType
}

// NewBuilder 创建 Builder；aliases 为空时只按原名匹配
func NewBuilder(aliases Aliases) *Builder {
	return &Builder{
		aliases: aliases,
		sb:      sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

// ResolveColumn 返回逻辑列在当前表中对应的实际列
// 同组多列同时存在时取优先级最高者：user_id 先于 student_id，course_id 先于 product_id
func (b *Builder) ResolveColumn(cols ColumnSet, logical string) (string, bool) {
	for _, name := range b.aliases.candidates(logical) {
		if cols.Has(name) {
			return name, true
		}
	}
	return "", false
}

// BuildInsert 生成插入语句，只包含实际存在的列
// 必填列未被覆盖时在生成 SQL 之前返回 *MissingColumnError
func (b *Builder) BuildInsert(table string, cols ColumnSet, values map[string]any) (Statement, error) {
	if err := checkIdent(table); err != nil {
		return Statement{}, err
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	assigned := make(map[string]any, len(values))
	// 原名命中优先
	for _, k := range keys {
		if cols.Has(k) {
			assigned[k] = values[k]
		}
	}
	for _, k := range keys {
		group := b.aliases.candidates(k)
		if len(group) < 2 {
			continue
		}
		primary, ok := b.ResolveColumn(cols, k)
		if !ok {
			continue
		}
		if _, done := assigned[primary]; !done {
			assigned[primary] = values[k]
		}
		// 同时存在的同义列若为必填，一并写入
		for _, name := range group {
			if _, done := assigned[name]; done {
				continue
			}
			if col, ok := cols.Get(name); ok && col.Required() {
				assigned[name] = values[k]
			}
		}
	}

	var missing []string
	for _, col := range cols.Columns() {
		if _, ok := assigned[col.Name]; !ok && col.Required() {
			missing = append(missing, col.Name)
		}
	}
	if len(missing) > 0 {
		return Statement{}, &MissingColumnError{Table: table, Columns: missing}
	}
	if len(assigned) == 0 {
		return Statement{}, fmt.Errorf("%w: %s", ErrNothingToWrite, table)
	}

	names := make([]string, 0, len(assigned))
	args := make([]any, 0, len(assigned))
	for _, col := range cols.Columns() {
		if v, ok := assigned[col.Name]; ok {
			names = append(names, quote(col.Name))
			args = append(args, v)
		}
	}

	q := b.sb.Insert(quote(table)).Columns(names...).Values(args...)
	stmt := Statement{}
	if pk := cols.PrimaryKey(); pk != "" {
		q = q.Suffix("RETURNING " + quote(pk))
		stmt.Returning = pk
	}
	sqlStr, sqlArgs, err := q.ToSql()
	if err != nil {
		return Statement{}, fmt.Errorf("schema: build insert %s: %w", table, err)
	}
	stmt.SQL, stmt.Args = sqlStr, sqlArgs
	return stmt, nil
}

// BuildIdentifierLookup 按用户名或邮箱查找一行
// cols 为 nil 表示结构未知，此时只按 username 查询；邮箱比较不区分大小写
func (b *Builder) BuildIdentifierLookup(table string, cols *ColumnSet, identifier string) (Statement, error) {
	if err := checkIdent(table); err != nil {
		return Statement{}, err
	}

	var where sq.Sqlizer
	switch {
	case cols == nil:
		where = sq.Eq{quote("username"): identifier}
	case cols.Has("username") && cols.Has("email"):
		where = sq.Or{
			sq.Eq{quote("username"): identifier},
			emailEquals(identifier),
		}
	case cols.Has("email"):
		where = emailEquals(identifier)
	case cols.Has("username"):
		where = sq.Eq{quote("username"): identifier}
	default:
		return Statement{}, fmt.Errorf("%w: %s", ErrNoIdentifierColumn, table)
	}

	sqlStr, args, err := b.sb.Select("*").From(quote(table)).Where(where).Limit(1).ToSql()
	if err != nil {
		return Statement{}, fmt.Errorf("schema: build lookup %s: %w", table, err)
	}
	return Statement{SQL: sqlStr, Args: args}, nil
}

// emailEquals 历史表中的邮箱可能带大写，两边都转小写再比较
func emailEquals(identifier string) sq.Sqlizer {
	return sq.Expr("LOWER("+quote("email")+") = ?", strings.ToLower(identifier))
}

// resolveWhere 把逻辑列条件转换为实际列条件
func (b *Builder) resolveWhere(table string, cols ColumnSet, where map[string]any) (sq.Eq, error) {
	eq := sq.Eq{}
	var missing []string
	for k, v := range where {
		name, ok := b.ResolveColumn(cols, k)
		if !ok {
			missing = append(missing, k)
			continue
		}
		eq[quote(name)] = v
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingColumnError{Table: table, Columns: missing}
	}
	return eq, nil
}

// BuildSelect 按逻辑列条件查询；条件列不存在时返回 *MissingColumnError
func (b *Builder) BuildSelect(table string, cols ColumnSet, where map[string]any, orderBy ...string) (Statement, error) {
	if err := checkIdent(table); err != nil {
		return Statement{}, err
	}
	eq, err := b.resolveWhere(table, cols, where)
	if err != nil {
		return Statement{}, err
	}
	q := b.sb.Select("*").From(quote(table))
	if len(eq) > 0 {
		q = q.Where(eq)
	}
	for _, o := range orderBy {
		if name, ok := b.ResolveColumn(cols, strings.TrimSuffix(o, " DESC")); ok {
			if strings.HasSuffix(o, " DESC") {
				q = q.OrderBy(quote(name) + " DESC")
			} else {
				q = q.OrderBy(quote(name))
			}
		}
	}
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return Statement{}, fmt.Errorf("schema: build select %s: %w", table, err)
	}
	return Statement{SQL: sqlStr, Args: args}, nil
}

// BuildPairSelect 按（学员, 课程）查询选课行
func (b *Builder) BuildPairSelect(table string, cols ColumnSet, studentID, courseID any) (Statement, error) {
	return b.BuildSelect(table, cols, map[string]any{"user_id": studentID, "course_id": courseID})
}

// BuildUpdate 只更新实际存在的列；set 中不存在的列被忽略
func (b *Builder) BuildUpdate(table string, cols ColumnSet, set map[string]any, where map[string]any) (Statement, error) {
	if err := checkIdent(table); err != nil {
		return Statement{}, err
	}
	eq, err := b.resolveWhere(table, cols, where)
	if err != nil {
		return Statement{}, err
	}
	if len(eq) == 0 {
		return Statement{}, fmt.Errorf("schema: refusing unconditional update on %s", table)
	}

	keys := make([]string, 0, len(set))
	for k := range set {
		if name, ok := b.ResolveColumn(cols, k); ok && name == k {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return Statement{}, fmt.Errorf("%w: %s", ErrNothingToWrite, table)
	}
	sort.Strings(keys)

	q := b.sb.Update(quote(table)).Where(eq)
	for _, k := range keys {
		q = q.Set(quote(k), set[k])
	}
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return Statement{}, fmt.Errorf("schema: build update %s: %w", table, err)
	}
	return Statement{SQL: sqlStr, Args: args}, nil
}

// BuildDelete 按逻辑列条件删除
func (b *Builder) BuildDelete(table string, cols ColumnSet, where map[string]any) (Statement, error) {
	if err := checkIdent(table); err != nil {
		return Statement{}, err
	}
	eq, err := b.resolveWhere(table, cols, where)
	if err != nil {
		return Statement{}, err
	}
	if len(eq) == 0 {
		return Statement{}, fmt.Errorf("schema: refusing unconditional delete on %s", table)
	}
	sqlStr, args, err := b.sb.Delete(quote(table)).Where(eq).ToSql()
	if err != nil {
		return Statement{}, fmt.Errorf("schema: build delete %s: %w", table, err)
	}
	return Statement{SQL: sqlStr, Args: args}, nil
}
