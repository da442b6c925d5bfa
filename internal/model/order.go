package model

import (
	"time"

	"gorm.io/datatypes"
)

// 订单状态
const (
	OrderPending  = "pending"
	OrderApproved = "approved"
	OrderRejected = "rejected"
)

// Order 订单表 — 对应 orders
// Courses 为下单时的课程快照（JSON），order_items 为权威明细
type Order struct {
	ID            int64          `gorm:"column:id;primaryKey"  json:"id"`
	UserID        int64          `gorm:"column:user_id"        json:"user_id"`
	Courses       datatypes.JSON `gorm:"column:courses"        json:"courses"`
	TotalAmount   float64        `gorm:"column:total_amount"   json:"total_amount"`
	PaymentMethod string         `gorm:"column:payment_method" json:"payment_method"`
	Status        string         `gorm:"column:status"         json:"status"`
	ApprovedAt    *time.Time     `gorm:"column:approved_at"    json:"approved_at,omitempty"`
	Timestamps

	// 关联
	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// TableName 指定表名
func (Order) TableName() string { return "orders" }

// OrderItem 订单明细表 — 对应 order_items
type OrderItem struct {
	ID       int64   `gorm:"column:id;primaryKey" json:"id"`
	OrderID  int64   `gorm:"column:order_id"      json:"order_id"`
	CourseID int64   `gorm:"column:course_id"     json:"course_id"`
	Title    string  `gorm:"column:title"         json:"title"`
	Price    float64 `gorm:"column:price"         json:"price"`
}

// TableName 指定表名
func (OrderItem) TableName() string { return "order_items" }

// OrderCourse orders.courses 快照中的单个课程；历史数据可能只有标题
type OrderCourse struct {
	ID    int64   `json:"id,omitempty"`
	Title string  `json:"title,omitempty"`
	Price float64 `json:"price,omitempty"`
}
