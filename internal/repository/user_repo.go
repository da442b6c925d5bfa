package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"edu-platform/internal/model"
)

// UserRepository 用户数据访问接口（users 表）
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]model.User, error)
	Update(ctx context.Context, id int64, fields map[string]any) error
	ListByRole(ctx context.Context, role, search string, offset, limit int) ([]model.User, int64, error)
	Delete(ctx context.Context, id int64) error
}

// userRepo UserRepository 的 GORM 实现
// 写入经由 Builder 只落到实际存在的列，读取使用 SELECT * 容忍缺列
type userRepo struct {
	db    *gorm.DB
	table dynamicTable
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db, table: newDynamicTable(db, model.TableUsers, nil)}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	now := nowUTC()
	values := map[string]any{
		"email":      strings.ToLower(user.Email),
		"password":   user.Password,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"phone":      user.Phone,
		"role":       user.Role,
		"points":     user.Points,
		"is_active":  true,
		"created_at": now,
		"updated_at": now,
	}
	if user.Username != "" {
		values["username"] = user.Username
	}
	if user.ParentID != nil {
		values["parent_id"] = *user.ParentID
	}
	if user.StudentID != nil {
		values["student_id"] = *user.StudentID
	}

	id, err := r.table.insert(ctx, values)
	if err != nil {
		return err
	}
	user.ID = id
	user.Email = strings.ToLower(user.Email)
	user.IsActive = true
	user.CreatedAt, user.UpdatedAt = now, now
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByIDs(ctx context.Context, ids []int64) ([]model.User, error) {
	var users []model.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// Update 只更新表中实际存在的列
func (r *userRepo) Update(ctx context.Context, id int64, fields map[string]any) error {
	cols, err := r.table.columns(ctx)
	if err != nil {
		return err
	}
	set := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		set[k] = v
	}
	set["updated_at"] = nowUTC()

	stmt, err := r.table.builder.BuildUpdate(r.table.name, cols, set, map[string]any{"id": id})
	if err != nil {
		return err
	}
	n, err := r.table.exec(ctx, stmt)
	if err != nil {
		return err
	}
	if n == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepo) ListByRole(ctx context.Context, role, search string, offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := r.db.WithContext(ctx).Model(&model.User{}).Where("role = ?", role)
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		db = db.Where("LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", like, like, like)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("id DESC").
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepo) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
