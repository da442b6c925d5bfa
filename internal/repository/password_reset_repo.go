package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"edu-platform/internal/model"
)

// PasswordResetRepository 找回密码验证码数据访问接口
type PasswordResetRepository interface {
	Create(ctx context.Context, reset *model.PasswordReset) error
	// FindLatest 同一邮箱与验证码的最新一条记录
	FindLatest(ctx context.Context, email, code string) (*model.PasswordReset, error)
	MarkUsed(ctx context.Context, id int64) error
	// InvalidateEmail 作废该邮箱所有未使用的验证码
	InvalidateEmail(ctx context.Context, email string) error
}

type passwordResetRepo struct {
	db *gorm.DB
}

// NewPasswordResetRepo 创建 PasswordResetRepository 实例
func NewPasswordResetRepo(db *gorm.DB) PasswordResetRepository {
	return &passwordResetRepo{db: db}
}

func (r *passwordResetRepo) Create(ctx context.Context, reset *model.PasswordReset) error {
	reset.Email = strings.ToLower(reset.Email)
	return r.db.WithContext(ctx).Create(reset).Error
}

func (r *passwordResetRepo) FindLatest(ctx context.Context, email, code string) (*model.PasswordReset, error) {
	var reset model.PasswordReset
	err := r.db.WithContext(ctx).
		Where("email = ? AND code = ?", strings.ToLower(email), code).
		Order("id DESC").
		First(&reset).Error
	if err != nil {
		return nil, err
	}
	return &reset, nil
}

func (r *passwordResetRepo) MarkUsed(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&model.PasswordReset{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *passwordResetRepo) InvalidateEmail(ctx context.Context, email string) error {
	return r.db.WithContext(ctx).Model(&model.PasswordReset{}).
		Where("email = ? AND used = ?", strings.ToLower(email), false).
		Update("used", true).Error
}
