package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"edu-platform/internal/model"
)

// ContentRepository 讲座 / 作业 / 测验 / 考试数据访问接口
type ContentRepository interface {
	List(ctx context.Context, kind model.ContentKind, subject string) ([]model.ContentItem, error)
	ListDated(ctx context.Context, kind model.ContentKind, from time.Time) ([]model.ContentItem, error)
	GetByID(ctx context.Context, kind model.ContentKind, id int64) (*model.ContentItem, error)
	Create(ctx context.Context, item *model.ContentItem) error
	Update(ctx context.Context, kind model.ContentKind, id int64, fields map[string]any) error
	SoftDelete(ctx context.Context, kind model.ContentKind, id int64) error
}

type contentRepo struct {
	db *gorm.DB
}

// NewContentRepo 创建 ContentRepository 实例
func NewContentRepo(db *gorm.DB) ContentRepository {
	return &contentRepo{db: db}
}

// scoped 绑定表名，并把类型特有的日期列读为 item_date
func (r *contentRepo) scoped(ctx context.Context, kind model.ContentKind) *gorm.DB {
	db := r.db.WithContext(ctx).Table(kind.Table())
	if col := kind.DateColumn(); col != "" {
		db = db.Select("*, " + col + " AS item_date")
	}
	return db
}

func withKind(items []model.ContentItem, kind model.ContentKind) []model.ContentItem {
	for i := range items {
		items[i].Kind = kind
	}
	return items
}

func (r *contentRepo) List(ctx context.Context, kind model.ContentKind, subject string) ([]model.ContentItem, error) {
	var items []model.ContentItem
	db := r.scoped(ctx, kind).Where("is_active = ?", true)
	if subject != "" {
		db = db.Where("subject = ?", subject)
	}
	if err := db.Order("id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return withKind(items, kind), nil
}

// ListDated 有日期且不早于 from 的有效条目，按日期升序
func (r *contentRepo) ListDated(ctx context.Context, kind model.ContentKind, from time.Time) ([]model.ContentItem, error) {
	col := kind.DateColumn()
	if col == "" {
		return nil, nil
	}
	var items []model.ContentItem
	err := r.scoped(ctx, kind).
		Where("is_active = ?", true).
		Where(col+" IS NOT NULL AND "+col+" >= ?", from.UTC()).
		Order(col).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return withKind(items, kind), nil
}

func (r *contentRepo) GetByID(ctx context.Context, kind model.ContentKind, id int64) (*model.ContentItem, error) {
	var item model.ContentItem
	if err := r.scoped(ctx, kind).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	item.Kind = kind
	return &item, nil
}

// Create 写入基础列，日期列单独更新；两步在同一事务内
func (r *contentRepo) Create(ctx context.Context, item *model.ContentItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(item.Kind.Table()).Create(item).Error; err != nil {
			return translate(err)
		}
		col := item.Kind.DateColumn()
		if col == "" || item.Date == nil {
			return nil
		}
		return tx.Table(item.Kind.Table()).Where("id = ?", item.ID).Update(col, item.Date.UTC()).Error
	})
}

// Update fields 中的 date 键映射到类型特有的日期列
func (r *contentRepo) Update(ctx context.Context, kind model.ContentKind, id int64, fields map[string]any) error {
	set := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		if k == "date" {
			if col := kind.DateColumn(); col != "" {
				set[col] = v
			}
			continue
		}
		set[k] = v
	}
	set["updated_at"] = nowUTC()

	res := r.db.WithContext(ctx).Table(kind.Table()).Where("id = ?", id).Updates(set)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *contentRepo) SoftDelete(ctx context.Context, kind model.ContentKind, id int64) error {
	res := r.db.WithContext(ctx).Table(kind.Table()).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{"is_active": false, "updated_at": nowUTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
