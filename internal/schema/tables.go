package schema

// LegacyPasswordColumns 历史表中可能存放口令的列名，按优先级排列
var LegacyPasswordColumns = []string{"password", "passwrod", "pasword", "password_hash"}

func legacyPasswordCandidates() []MappingCandidate {
	out := make([]MappingCandidate, 0, len(LegacyPasswordColumns))
	for _, name := range LegacyPasswordColumns {
		out = append(out, MappingCandidate{Requires: []string{name}, Expr: quote(name)})
	}
	return out
}

// ColumnSpec 目标表结构中的一列
type ColumnSpec struct {
	Name       string
	Type       ColumnType
	NotNull    bool
	Default    string // 逻辑默认值；空串表示无默认值
	PrimaryKey bool
	Unique     bool
	// Aliases 同义列；任意一个已存在即视为满足，不再补列
	Aliases []string
}

// MappingCandidate 整表重建时目标列的取值表达式；Requires 中的旧列都存在时才可用
type MappingCandidate struct {
	Requires []string
	Expr     string
}

// RebuildRule 无法通过加列兼容的历史表形态
type RebuildRule struct {
	// MissingAny 任一列缺失且 PresentAll 全部存在时触发重建
	MissingAny []string
	PresentAll []string
	// Mapping 目标列 -> 候选表达式（按顺序取第一个可用）；未列出的列按同名复制
	Mapping map[string][]MappingCandidate
}

// Triggered 判断当前列集合是否需要整表重建
func (r *RebuildRule) Triggered(cols ColumnSet) bool {
	if r == nil || !cols.HasAll(r.PresentAll...) {
		return false
	}
	for _, name := range r.MissingAny {
		if !cols.Has(name) {
			return true
		}
	}
	return false
}

// IndexSpec 唯一索引；每个位置给出候选列，按顺序取第一个存在的列
type IndexSpec struct {
	Name    string
	Columns [][]string
}

// TableShape 一张表的目标结构
type TableShape struct {
	Name    string
	Columns []ColumnSpec
	// LegacyNames 历史表名；目标表为空时整表改名接管
	LegacyNames []string
	Rebuild     *RebuildRule
	Indexes     []IndexSpec
}

// Column 按名称查找列定义
func (t TableShape) Column(name string) (ColumnSpec, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

func pk() ColumnSpec {
	return ColumnSpec{Name: "id", Type: TypeInteger, PrimaryKey: true}
}

func text(name string) ColumnSpec { return ColumnSpec{Name: name, Type: TypeText} }

func requiredText(name string) ColumnSpec {
	return ColumnSpec{Name: name, Type: TypeText, NotNull: true}
}

func integer(name string) ColumnSpec { return ColumnSpec{Name: name, Type: TypeInteger} }

func timestamp(name string) ColumnSpec { return ColumnSpec{Name: name, Type: TypeTime} }

func createdAt() ColumnSpec {
	return ColumnSpec{Name: "created_at", Type: TypeTime, NotNull: true, Default: "CURRENT_TIMESTAMP"}
}

func updatedAt() ColumnSpec {
	return ColumnSpec{Name: "updated_at", Type: TypeTime, NotNull: true, Default: "CURRENT_TIMESTAMP"}
}

func flag(name string, def bool) ColumnSpec {
	d := "false"
	if def {
		d = "true"
	}
	return ColumnSpec{Name: name, Type: TypeBool, NotNull: true, Default: d}
}

func email() ColumnSpec {
	return ColumnSpec{Name: "email", Type: TypeText, NotNull: true, Unique: true}
}

// 内容类表（讲座、作业、测验、考试）共用的列
func contentColumns(extra ...ColumnSpec) []ColumnSpec {
	cols := []ColumnSpec{
		pk(),
		{Name: "teacher_id", Type: TypeInteger, NotNull: true},
		requiredText("subject"),
		requiredText("title"),
		text("description"),
	}
	cols = append(cols, extra...)
	return append(cols, flag("is_active", true), createdAt(), updatedAt())
}

// DefaultShapes 全部规范表结构，按校正顺序排列
func DefaultShapes() []TableShape {
	return []TableShape{
		{
			Name: "users",
			Columns: []ColumnSpec{
				pk(), email(), requiredText("password"),
				text("first_name"), text("last_name"), text("phone"),
				{Name: "role", Type: TypeText, NotNull: true, Default: "'student'"},
				text("username"),
				{Name: "points", Type: TypeInteger, NotNull: true, Default: "0"},
				integer("parent_id"), integer("student_id"),
				flag("is_active", true), createdAt(), updatedAt(),
			},
			Indexes: []IndexSpec{{Name: "idx_users_email", Columns: [][]string{{"email"}}}},
		},
		{
			Name: "students",
			Columns: []ColumnSpec{
				pk(), email(), requiredText("password"),
				text("first_name"), text("last_name"), text("phone"), text("username"),
				flag("is_active", true), createdAt(),
			},
		},
		{
			Name: "teachers",
			Columns: []ColumnSpec{
				pk(), email(), requiredText("password"),
				text("full_name"), text("phone"), text("subject"), text("username"),
				flag("is_active", true), createdAt(),
			},
			Rebuild: &RebuildRule{
				MissingAny: []string{"full_name"},
				PresentAll: []string{"first_name"},
				Mapping: map[string][]MappingCandidate{
					"password": legacyPasswordCandidates(),
					"full_name": {
						{
							Requires: []string{"first_name", "last_name"},
							Expr:     `TRIM(COALESCE("first_name", '') || ' ' || COALESCE("last_name", ''))`,
						},
						{Requires: []string{"first_name"}, Expr: `"first_name"`},
					},
				},
			},
		},
		{
			Name: "courses",
			Columns: []ColumnSpec{
				pk(), requiredText("title"), text("description"), text("instructor"),
				{Name: "price", Type: TypeReal, NotNull: true, Default: "0"},
				text("level"), flag("is_active", true), createdAt(), updatedAt(),
			},
		},
		{
			Name: "orders",
			Columns: []ColumnSpec{
				pk(),
				{Name: "user_id", Type: TypeInteger, NotNull: true},
				{Name: "courses", Type: TypeJSON},
				{Name: "total_amount", Type: TypeReal, NotNull: true, Default: "0"},
				text("payment_method"),
				{Name: "status", Type: TypeText, NotNull: true, Default: "'pending'"},
				timestamp("approved_at"), createdAt(), updatedAt(),
			},
		},
		{
			Name: "order_items",
			Columns: []ColumnSpec{
				pk(),
				{Name: "order_id", Type: TypeInteger, NotNull: true},
				{Name: "course_id", Type: TypeInteger, NotNull: true},
				text("title"),
				{Name: "price", Type: TypeReal, NotNull: true, Default: "0"},
			},
		},
		{
			Name:        "enrollments",
			LegacyNames: []string{"user_courses"},
			Columns: []ColumnSpec{
				pk(),
				{Name: "user_id", Type: TypeInteger, NotNull: true, Aliases: []string{"student_id"}},
				{Name: "course_id", Type: TypeInteger, NotNull: true, Aliases: []string{"product_id"}},
				{Name: "status", Type: TypeText, NotNull: true, Default: "'active'"},
				flag("is_active", true), flag("granted_by_admin", false),
				timestamp("expires_at"), createdAt(), updatedAt(),
			},
			Indexes: []IndexSpec{{
				Name:    "idx_enrollments_student_course",
				Columns: [][]string{{"user_id", "student_id"}, {"course_id", "product_id"}},
			}},
		},
		{Name: "lectures", Columns: contentColumns(timestamp("scheduled_at"))},
		{Name: "assignments", Columns: contentColumns(timestamp("due_date"))},
		{Name: "quizzes", Columns: contentColumns()},
		{Name: "exams", Columns: contentColumns(timestamp("exam_date"))},
		{
			Name: "password_resets",
			Columns: []ColumnSpec{
				pk(), requiredText("email"), requiredText("code"),
				{Name: "expires_at", Type: TypeTime, NotNull: true},
				flag("used", false), createdAt(),
			},
		},
	}
}
