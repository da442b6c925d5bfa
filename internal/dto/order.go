package dto

import "encoding/json"

// CreateOrderRequest 下单请求
// courses 兼容两种写法：课程 id 数组，或 {id,title} 对象数组
type CreateOrderRequest struct {
	Courses       []OrderCourseInput `json:"courses"`
	CourseIDs     []int64            `json:"course_ids"`
	PaymentMethod string             `json:"payment_method" binding:"max=50"`
}

// OrderCourseInput 下单的单个课程
// 历史订单快照中也可能只有课程标题字符串
type OrderCourseInput struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// UnmarshalJSON 接受数字、字符串与对象
func (o *OrderCourseInput) UnmarshalJSON(b []byte) error {
	var id int64
	if err := json.Unmarshal(b, &id); err == nil {
		o.ID = id
		return nil
	}
	var title string
	if err := json.Unmarshal(b, &title); err == nil {
		o.Title = title
		return nil
	}
	type plain OrderCourseInput
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*o = OrderCourseInput(p)
	return nil
}

// OrderIDRequest 审批 / 拒绝订单
type OrderIDRequest struct {
	OrderID int64  `json:"order_id" binding:"required,min=1"`
	Reason  string `json:"reason"`
}

// OrderListRequest 订单列表过滤
type OrderListRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=pending approved rejected"`
}

// OrderItemResponse 订单明细
type OrderItemResponse struct {
	CourseID int64   `json:"course_id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
}

// OrderResponse 订单
type OrderResponse struct {
	ID            int64               `json:"id"`
	UserID        int64               `json:"user_id"`
	TotalAmount   float64             `json:"total_amount"`
	PaymentMethod string              `json:"payment_method,omitempty"`
	Status        string              `json:"status"`
	Items         []OrderItemResponse `json:"items"`
	ApprovedAt    string              `json:"approved_at,omitempty"`
	CreatedAt     string              `json:"created_at,omitempty"`
}

// ApproveOrderResponse 审批结果
type ApproveOrderResponse struct {
	OrderID            int64   `json:"order_id"`
	Status             string  `json:"status"`
	EnrollmentsCreated int     `json:"enrollments_created"`
	CourseIDs          []int64 `json:"course_ids"`
}
