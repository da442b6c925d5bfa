package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"edu-platform/internal/dto"
	"edu-platform/internal/service"
	"edu-platform/pkg/response"
)

// OrderHandler 订单模块 HTTP 处理器
type OrderHandler struct {
	orderSvc service.OrderService
}

// NewOrderHandler 创建 OrderHandler
func NewOrderHandler(orderSvc service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// Create 学员下单
// POST /api/orders
func (h *OrderHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "参数校验失败")
		return
	}
	order, err := h.orderSvc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		handleOrderError(c, err)
		return
	}
	response.Created(c, order)
}

// ListMine 我的订单
// GET /api/orders
func (h *OrderHandler) ListMine(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	orders, err := h.orderSvc.ListMine(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, orders)
}

// List 订单列表（管理员）
// GET /api/admin/orders?status=&page=&page_size=
func (h *OrderHandler) List(c *gin.Context) {
	var req dto.OrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "参数校验失败")
		return
	}
	orders, total, err := h.orderSvc.List(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, dto.PageResponse{
		List:     orders,
		Total:    total,
		Page:     req.GetPage(),
		PageSize: req.GetPageSize(),
	})
}

// Approve 审批订单并开通课程
// POST /api/admin/approve-order
func (h *OrderHandler) Approve(c *gin.Context) {
	var req dto.OrderIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "Order ID is required")
		return
	}
	result, err := h.orderSvc.Approve(c.Request.Context(), req.OrderID)
	if err != nil {
		handleOrderError(c, err)
		return
	}
	response.OK(c, result)
}

// Reject 拒绝订单
// POST /api/admin/reject-order
func (h *OrderHandler) Reject(c *gin.Context) {
	var req dto.OrderIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "Order ID is required")
		return
	}
	if err := h.orderSvc.Reject(c.Request.Context(), req.OrderID, req.Reason); err != nil {
		handleOrderError(c, err)
		return
	}
	response.OKMessage(c, "订单已拒绝")
}

func handleOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrCourseUnavailable),
		errors.Is(err, service.ErrAmbiguousCourse):
		response.BadRequest(c, response.CodeValidation, err.Error())
	case errors.Is(err, service.ErrOrderNotPending):
		response.BadRequest(c, response.CodeConflict, err.Error())
	case errors.Is(err, service.ErrCourseNotFound), errors.Is(err, service.ErrOrderNotFound):
		response.NotFound(c, response.CodeNotFound, err.Error())
	default:
		respondError(c, err)
	}
}
