package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"edu-platform/internal/model"
	"edu-platform/internal/schema"
)

// EnrollmentRepository 选课数据访问接口
// 学员列（user_id / student_id）与课程列（course_id / product_id）按实际表结构解析
type EnrollmentRepository interface {
	FindPair(ctx context.Context, userID, courseID int64) (*model.Enrollment, error)
	Create(ctx context.Context, e *model.Enrollment) error
	Reactivate(ctx context.Context, id int64, expiresAt *time.Time) error
	// Revoke 有状态列时置为撤销，否则删除；返回是否有记录被处理
	Revoke(ctx context.Context, userID, courseID int64) (bool, error)
	List(ctx context.Context, userID, courseID int64) ([]model.Enrollment, error)
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
}

type enrollmentRepo struct {
	table dynamicTable
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{table: newDynamicTable(db, "enrollments", schema.IdentifierAliases)}
}

func (r *enrollmentRepo) FindPair(ctx context.Context, userID, courseID int64) (*model.Enrollment, error) {
	cols, err := r.table.columns(ctx)
	if err != nil {
		return nil, err
	}
	stmt, err := r.table.builder.BuildPairSelect(r.table.name, cols, userID, courseID)
	if err != nil {
		return nil, err
	}
	rows, err := r.table.query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.toEnrollment(cols, rows[0]), nil
}

func (r *enrollmentRepo) Create(ctx context.Context, e *model.Enrollment) error {
	now := nowUTC()
	if e.Status == "" {
		e.Status = model.EnrollmentActive
	}
	values := map[string]any{
		"user_id":          e.UserID,
		"course_id":        e.CourseID,
		"status":           e.Status,
		"is_active":        true,
		"granted_by_admin": e.GrantedByAdmin,
		"created_at":       now,
		"updated_at":       now,
	}
	if e.ExpiresAt != nil {
		values["expires_at"] = e.ExpiresAt.UTC()
	}

	id, err := r.table.insert(ctx, values)
	if err != nil {
		return err
	}
	e.ID = id
	e.IsActive = true
	e.CreatedAt = &now
	return nil
}

func (r *enrollmentRepo) Reactivate(ctx context.Context, id int64, expiresAt *time.Time) error {
	cols, err := r.table.columns(ctx)
	if err != nil {
		return err
	}
	set := map[string]any{
		"status":     model.EnrollmentActive,
		"is_active":  true,
		"updated_at": nowUTC(),
	}
	if expiresAt != nil {
		set["expires_at"] = expiresAt.UTC()
	} else if cols.Has("expires_at") {
		set["expires_at"] = nil
	}
	stmt, err := r.table.builder.BuildUpdate(r.table.name, cols, set, map[string]any{"id": id})
	if err != nil {
		return err
	}
	_, err = r.table.exec(ctx, stmt)
	return err
}

func (r *enrollmentRepo) Revoke(ctx context.Context, userID, courseID int64) (bool, error) {
	cols, err := r.table.columns(ctx)
	if err != nil {
		return false, err
	}
	where := map[string]any{"user_id": userID, "course_id": courseID}

	var stmt schema.Statement
	if cols.Has("status") || cols.Has("is_active") {
		stmt, err = r.table.builder.BuildUpdate(r.table.name, cols, map[string]any{
			"status":     model.EnrollmentRevoked,
			"is_active":  false,
			"updated_at": nowUTC(),
		}, where)
	} else {
		stmt, err = r.table.builder.BuildDelete(r.table.name, cols, where)
	}
	if err != nil {
		return false, err
	}
	n, err := r.table.exec(ctx, stmt)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List 按学员、课程过滤；参数为 0 表示不过滤
func (r *enrollmentRepo) List(ctx context.Context, userID, courseID int64) ([]model.Enrollment, error) {
	cols, err := r.table.columns(ctx)
	if err != nil {
		return nil, err
	}
	where := map[string]any{}
	if userID > 0 {
		where["user_id"] = userID
	}
	if courseID > 0 {
		where["course_id"] = courseID
	}
	stmt, err := r.table.builder.BuildSelect(r.table.name, cols, where, "id DESC")
	if err != nil {
		return nil, err
	}
	rows, err := r.table.query(ctx, stmt)
	if err != nil {
		return nil, err
	}

	out := make([]model.Enrollment, 0, len(rows))
	for _, raw := range rows {
		out = append(out, *r.toEnrollment(cols, raw))
	}
	return out, nil
}

func (r *enrollmentRepo) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	cols, err := r.table.columns(ctx)
	if err != nil {
		return 0, err
	}
	stmt, err := r.table.builder.BuildDelete(r.table.name, cols, map[string]any{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return r.table.exec(ctx, stmt)
}

func (r *enrollmentRepo) toEnrollment(cols schema.ColumnSet, raw map[string]any) *model.Enrollment {
	rw := row(raw)
	userCol, _ := r.table.builder.ResolveColumn(cols, "user_id")
	courseCol, _ := r.table.builder.ResolveColumn(cols, "course_id")

	e := &model.Enrollment{
		ID:             rw.integer("id"),
		UserID:         rw.integer(userCol),
		CourseID:       rw.integer(courseCol),
		Status:         rw.str("status"),
		IsActive:       rw.boolean("is_active", true),
		GrantedByAdmin: rw.boolean("granted_by_admin", false),
		ExpiresAt:      rw.timestamp("expires_at"),
		CreatedAt:      rw.timestamp("created_at"),
	}
	if e.Status == "" {
		e.Status = model.EnrollmentActive
	}
	return e
}
