package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"edu-platform/internal/model"
	"edu-platform/internal/schema"
)

// CredentialRecord 账号及其存储的口令
// PasswordColumn 为口令实际所在的列（可能是历史拼写）
type CredentialRecord struct {
	Account        model.Account
	Password       string
	PasswordColumn string
}

// CredentialRepository 跨账号表（users / students / teachers）的口令读写
type CredentialRepository interface {
	// FindByIdentifier 按用户名或邮箱查找；表不存在时返回 schema.ErrTableNotFound，无匹配时返回 gorm.ErrRecordNotFound
	FindByIdentifier(ctx context.Context, table, identifier string) (*CredentialRecord, error)
	FindByID(ctx context.Context, table string, id int64) (*CredentialRecord, error)
	UpdatePassword(ctx context.Context, table, column string, id int64, hash string) error
	// UpdateFields 只更新表中实际存在的列
	UpdateFields(ctx context.Context, table string, id int64, fields map[string]any) error
}

type credentialRepo struct {
	db      *gorm.DB
	builder *schema.Builder
}

// NewCredentialRepo 创建 CredentialRepository 实例
func NewCredentialRepo(db *gorm.DB) CredentialRepository {
	return &credentialRepo{db: db, builder: schema.NewBuilder(nil)}
}

func (r *credentialRepo) table(name string) dynamicTable {
	return newDynamicTable(r.db, name, nil)
}

func (r *credentialRepo) FindByIdentifier(ctx context.Context, table, identifier string) (*CredentialRecord, error) {
	t := r.table(table)

	var colsPtr *schema.ColumnSet
	cols, err := t.columns(ctx)
	switch {
	case errors.Is(err, schema.ErrTableNotFound):
		return nil, err
	case err == nil:
		colsPtr = &cols
	}
	// 其余检查失败时 colsPtr 为 nil，查询退化为只按 username 匹配

	stmt, err := r.builder.BuildIdentifierLookup(table, colsPtr, identifier)
	if err != nil {
		return nil, err
	}
	rows, err := t.query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return toCredential(table, rows[0]), nil
}

func (r *credentialRepo) FindByID(ctx context.Context, table string, id int64) (*CredentialRecord, error) {
	t := r.table(table)
	cols, err := t.columns(ctx)
	if err != nil {
		return nil, err
	}
	stmt, err := r.builder.BuildSelect(table, cols, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	rows, err := t.query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return toCredential(table, rows[0]), nil
}

// UpdatePassword 回写口令；column 为空时写入 password 列
func (r *credentialRepo) UpdatePassword(ctx context.Context, table, column string, id int64, hash string) error {
	if column == "" {
		column = "password"
	}
	t := r.table(table)
	cols, err := t.columns(ctx)
	if err != nil {
		return err
	}
	if !cols.Has(column) {
		return &schema.MissingColumnError{Table: table, Columns: []string{column}}
	}

	set := map[string]any{column: hash}
	if cols.Has("updated_at") {
		set["updated_at"] = nowUTC()
	}
	stmt, err := r.builder.BuildUpdate(table, cols, set, map[string]any{"id": id})
	if err != nil {
		return err
	}
	n, err := t.exec(ctx, stmt)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("update password %s/%d: %w", table, id, gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *credentialRepo) UpdateFields(ctx context.Context, table string, id int64, fields map[string]any) error {
	t := r.table(table)
	cols, err := t.columns(ctx)
	if err != nil {
		return err
	}
	set := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		set[k] = v
	}
	if cols.Has("updated_at") {
		set["updated_at"] = nowUTC()
	}
	stmt, err := r.builder.BuildUpdate(table, cols, set, map[string]any{"id": id})
	if err != nil {
		return err
	}
	n, err := t.exec(ctx, stmt)
	if err != nil {
		return err
	}
	if n == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// toCredential 把任一账号表的行转换为统一视图
func toCredential(table string, raw map[string]any) *CredentialRecord {
	rw := row(raw)
	rec := &CredentialRecord{
		Account: model.Account{
			ID:        rw.integer("id"),
			Table:     table,
			Email:     rw.str("email"),
			Username:  rw.str("username"),
			FirstName: rw.str("first_name"),
			LastName:  rw.str("last_name"),
			FullName:  rw.first("full_name", "name"),
			Phone:     rw.first("phone", "phone_number"),
			Role:      rw.str("role"),
			Subject:   rw.str("subject"),
			Points:    int(rw.integer("points")),
			ParentID:  rw.integerPtr("parent_id"),
			StudentID: rw.integerPtr("student_id"),
			IsActive:  rw.boolean("is_active", true),
			CreatedAt: rw.timestamp("created_at"),
		},
	}
	if rec.Account.Role == "" {
		rec.Account.Role = defaultRole(table)
	}

	for _, col := range schema.LegacyPasswordColumns {
		if rw.has(col) {
			rec.Password = rw.str(col)
			rec.PasswordColumn = col
			break
		}
	}
	return rec
}

// defaultRole 历史表没有 role 列时按表推断角色
func defaultRole(table string) string {
	switch table {
	case model.TableTeachers:
		return model.RoleTeacher
	default:
		return model.RoleStudent
	}
}
