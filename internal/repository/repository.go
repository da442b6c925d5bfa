package repository

import (
	"context"

	"gorm.io/gorm"

	"edu-platform/pkg/database"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db         *gorm.DB
	maxRetries uint64

	User          UserRepository
	Credential    CredentialRepository
	Course        CourseRepository
	Order         OrderRepository
	Enrollment    EnrollmentRepository
	Content       ContentRepository
	PasswordReset PasswordResetRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB, maxRetries uint64) *Repository {
	return &Repository{
		db:            db,
		maxRetries:    maxRetries,
		User:          NewUserRepo(db),
		Credential:    NewCredentialRepo(db),
		Course:        NewCourseRepo(db),
		Order:         NewOrderRepo(db),
		Enrollment:    NewEnrollmentRepo(db),
		Content:       NewContentRepo(db),
		PasswordReset: NewPasswordResetRepo(db),
	}
}

// BeginTx 开启事务；未绑定数据库（单元测试中的 mock 聚合）时返回 nil
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// WithTx 返回绑定到事务连接的 Repository；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx, r.maxRetries)
}

// RunInTx 在单个事务中执行 fn，任一步失败整体回滚
// 遇到瞬时错误（SQLite 锁等待、连接失效）时整体重试
func (r *Repository) RunInTx(ctx context.Context, fn func(txRepo *Repository) error) error {
	return database.WithRetry(ctx, r.maxRetries, func(ctx context.Context) error {
		tx, err := r.BeginTx(ctx)
		if err != nil {
			return err
		}
		if tx == nil {
			return fn(r)
		}

		committed := false
		defer func() {
			if !committed {
				tx.Rollback()
			}
		}()

		if err := fn(r.WithTx(tx)); err != nil {
			return err
		}
		if err := tx.Commit().Error; err != nil {
			return err
		}
		committed = true
		return nil
	})
}
