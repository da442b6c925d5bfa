package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"edu-platform/internal/model"
	"edu-platform/internal/schema"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	// Create 写入订单及明细，调用方负责事务
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	// GetForUpdate 读取订单并加行锁（PostgreSQL）；SQLite 由写事务串行化
	GetForUpdate(ctx context.Context, id int64) (*model.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)
	List(ctx context.Context, status string, offset, limit int) ([]model.Order, int64, error)
	// TransitionStatus 仅当当前状态为 from 时更新，返回是否更新成功
	TransitionStatus(ctx context.Context, id int64, from, to string, at time.Time) (bool, error)
}

type orderRepo struct {
	db    *gorm.DB
	table dynamicTable
}

// NewOrderRepo 创建 OrderRepository 实例
func NewOrderRepo(db *gorm.DB) OrderRepository {
	return &orderRepo{db: db, table: newDynamicTable(db, "orders", nil)}
}

func (r *orderRepo) Create(ctx context.Context, order *model.Order) error {
	now := nowUTC()
	if order.Status == "" {
		order.Status = model.OrderPending
	}
	values := map[string]any{
		"user_id":        order.UserID,
		"total_amount":   order.TotalAmount,
		"payment_method": order.PaymentMethod,
		"status":         order.Status,
		"created_at":     now,
		"updated_at":     now,
	}
	if len(order.Courses) > 0 {
		values["courses"] = string(order.Courses)
	}

	id, err := r.table.insert(ctx, values)
	if err != nil {
		return err
	}
	order.ID = id
	order.CreatedAt, order.UpdatedAt = now, now

	if len(order.Items) == 0 {
		return nil
	}
	for i := range order.Items {
		order.Items[i].OrderID = id
	}
	return translate(r.db.WithContext(ctx).Create(&order.Items).Error)
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) GetForUpdate(ctx context.Context, id int64) (*model.Order, error) {
	db := r.db.WithContext(ctx)
	if schema.DialectOf(r.db) == schema.DialectPostgres {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order model.Order
	if err := db.Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	var items []model.OrderItem
	if err := r.db.WithContext(ctx).Where("order_id = ?", id).Order("id").Find(&items).Error; err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (r *orderRepo) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepo) List(ctx context.Context, status string, offset, limit int) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Order{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Preload("Items").
		Offset(offset).Limit(limit).
		Order("id DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepo) TransitionStatus(ctx context.Context, id int64, from, to string, at time.Time) (bool, error) {
	cols, err := r.table.columns(ctx)
	if err != nil {
		return false, err
	}
	set := map[string]any{"status": to, "updated_at": at}
	if to == model.OrderApproved {
		set["approved_at"] = at
	}
	stmt, err := r.table.builder.BuildUpdate(r.table.name, cols, set, map[string]any{"id": id, "status": from})
	if err != nil {
		return false, err
	}
	n, err := r.table.exec(ctx, stmt)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
