package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"edu-platform/internal/dto"
	"edu-platform/internal/model"
	"edu-platform/internal/repository"
)

// ── 订单模块业务错误 ──

var (
	ErrEmptyOrder      = errors.New("订单至少需要包含一门课程")
	ErrOrderNotFound   = errors.New("订单不存在")
	ErrOrderNotPending = errors.New("订单不是待审批状态")
	ErrAmbiguousCourse = errors.New("无法唯一确定订单中的课程")
)

// OrderService 订单业务接口
type OrderService interface {
	Create(ctx context.Context, userID int64, req *dto.CreateOrderRequest) (*dto.OrderResponse, error)
	ListMine(ctx context.Context, userID int64) ([]dto.OrderResponse, error)
	List(ctx context.Context, req *dto.OrderListRequest) ([]dto.OrderResponse, int64, error)
	// Approve 单事务内：锁定订单、逐门开通课程、状态置为 approved
	Approve(ctx context.Context, orderID int64) (*dto.ApproveOrderResponse, error)
	Reject(ctx context.Context, orderID int64, reason string) error
}

type orderService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewOrderService 创建 OrderService 实例
func NewOrderService(repo *repository.Repository, logger *zap.Logger) OrderService {
	return &orderService{repo: repo, logger: logger, now: time.Now}
}

// ────────────────────── Create ──────────────────────

func (s *orderService) Create(ctx context.Context, userID int64, req *dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	inputs := make([]dto.OrderCourseInput, 0, len(req.Courses)+len(req.CourseIDs))
	inputs = append(inputs, req.Courses...)
	for _, id := range req.CourseIDs {
		inputs = append(inputs, dto.OrderCourseInput{ID: id})
	}

	ids, err := resolveCourseIDs(ctx, s.repo, inputs)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrEmptyOrder
	}

	courses, err := s.repo.Course.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询课程失败", zap.Error(err))
		return nil, err
	}
	byID := make(map[int64]model.Course, len(courses))
	for _, c := range courses {
		byID[c.ID] = c
	}

	order := &model.Order{
		UserID:        userID,
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		Status:        model.OrderPending,
	}
	snapshot := make([]model.OrderCourse, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok || !c.IsActive {
			return nil, ErrCourseUnavailable
		}
		order.TotalAmount += c.Price
		order.Items = append(order.Items, model.OrderItem{CourseID: c.ID, Title: c.Title, Price: c.Price})
		snapshot = append(snapshot, model.OrderCourse{ID: c.ID, Title: c.Title, Price: c.Price})
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}
	order.Courses = datatypes.JSON(raw)

	if err := s.repo.RunInTx(ctx, func(tx *repository.Repository) error {
		return tx.Order.Create(ctx, order)
	}); err != nil {
		s.logger.Error("创建订单失败", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("订单已创建", zap.Int64("order_id", order.ID), zap.Int("courses", len(ids)))
	resp := toOrderResponse(order)
	return &resp, nil
}

// resolveCourseIDs 去重并保持顺序；只有标题的条目须唯一匹配一门课程
func resolveCourseIDs(ctx context.Context, repo *repository.Repository, inputs []dto.OrderCourseInput) ([]int64, error) {
	seen := make(map[int64]bool, len(inputs))
	ids := make([]int64, 0, len(inputs))
	for _, in := range inputs {
		id := in.ID
		if id <= 0 {
			title := strings.TrimSpace(in.Title)
			if title == "" {
				continue
			}
			matches, err := repo.Course.FindByTitle(ctx, title)
			if err != nil {
				return nil, err
			}
			if len(matches) != 1 {
				return nil, ErrAmbiguousCourse
			}
			id = matches[0].ID
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ────────────────────── 查询 ──────────────────────

func (s *orderService) ListMine(ctx context.Context, userID int64) ([]dto.OrderResponse, error) {
	orders, err := s.repo.Order.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询我的订单失败", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		result = append(result, toOrderResponse(&orders[i]))
	}
	return result, nil
}

func (s *orderService) List(ctx context.Context, req *dto.OrderListRequest) ([]dto.OrderResponse, int64, error) {
	orders, total, err := s.repo.Order.List(ctx, req.Status, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询订单列表失败", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		result = append(result, toOrderResponse(&orders[i]))
	}
	return result, total, nil
}

// ────────────────────── Approve / Reject ──────────────────────

func (s *orderService) Approve(ctx context.Context, orderID int64) (*dto.ApproveOrderResponse, error) {
	resp := &dto.ApproveOrderResponse{OrderID: orderID}

	err := s.repo.RunInTx(ctx, func(tx *repository.Repository) error {
		resp.EnrollmentsCreated = 0
		order, err := tx.Order.GetForUpdate(ctx, orderID)
		if err != nil {
			if isNotFound(err) {
				return ErrOrderNotFound
			}
			return err
		}
		if order.Status != model.OrderPending {
			return ErrOrderNotPending
		}

		courseIDs, err := orderCourseIDs(ctx, tx, order)
		if err != nil {
			return err
		}
		if len(courseIDs) == 0 {
			return ErrEmptyOrder
		}

		now := s.now().UTC()
		for _, courseID := range courseIDs {
			r, err := grantEnrollment(ctx, tx, order.UserID, courseID, nil, false, now)
			if err != nil {
				return err
			}
			if r.created || r.reactivated {
				resp.EnrollmentsCreated++
			}
		}

		ok, err := tx.Order.TransitionStatus(ctx, orderID, model.OrderPending, model.OrderApproved, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrOrderNotPending
		}
		resp.CourseIDs = courseIDs
		return nil
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("审批订单失败", zap.Int64("order_id", orderID), zap.Error(err))
		}
		return nil, err
	}

	resp.Status = model.OrderApproved
	s.logger.Info("订单已审批",
		zap.Int64("order_id", orderID),
		zap.Int("enrollments_created", resp.EnrollmentsCreated),
	)
	return resp, nil
}

// orderCourseIDs order_items 优先；历史订单只有 courses JSON 时从快照解析
func orderCourseIDs(ctx context.Context, repo *repository.Repository, order *model.Order) ([]int64, error) {
	if len(order.Items) > 0 {
		ids := make([]int64, 0, len(order.Items))
		seen := make(map[int64]bool, len(order.Items))
		for _, it := range order.Items {
			if it.CourseID > 0 && !seen[it.CourseID] {
				seen[it.CourseID] = true
				ids = append(ids, it.CourseID)
			}
		}
		return ids, nil
	}

	if len(order.Courses) == 0 {
		return nil, nil
	}
	var inputs []dto.OrderCourseInput
	if err := json.Unmarshal(order.Courses, &inputs); err != nil {
		return nil, ErrAmbiguousCourse
	}
	return resolveCourseIDs(ctx, repo, inputs)
}

func (s *orderService) Reject(ctx context.Context, orderID int64, reason string) error {
	err := s.repo.RunInTx(ctx, func(tx *repository.Repository) error {
		order, err := tx.Order.GetForUpdate(ctx, orderID)
		if err != nil {
			if isNotFound(err) {
				return ErrOrderNotFound
			}
			return err
		}
		if order.Status != model.OrderPending {
			return ErrOrderNotPending
		}
		ok, err := tx.Order.TransitionStatus(ctx, orderID, model.OrderPending, model.OrderRejected, s.now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return ErrOrderNotPending
		}
		return nil
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("拒绝订单失败", zap.Int64("order_id", orderID), zap.Error(err))
		}
		return err
	}
	s.logger.Info("订单已拒绝", zap.Int64("order_id", orderID), zap.String("reason", reason))
	return nil
}

func toOrderResponse(o *model.Order) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:            o.ID,
		UserID:        o.UserID,
		TotalAmount:   o.TotalAmount,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		Items:         make([]dto.OrderItemResponse, 0, len(o.Items)),
		ApprovedAt:    formatTime(o.ApprovedAt),
		CreatedAt:     formatTime(&o.CreatedAt),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, dto.OrderItemResponse{CourseID: it.CourseID, Title: it.Title, Price: it.Price})
	}
	// 历史订单没有明细时展示 JSON 快照
	if len(resp.Items) == 0 && len(o.Courses) > 0 {
		var snapshot []model.OrderCourse
		if err := json.Unmarshal(o.Courses, &snapshot); err == nil {
			for _, c := range snapshot {
				resp.Items = append(resp.Items, dto.OrderItemResponse{CourseID: c.ID, Title: c.Title, Price: c.Price})
			}
		}
	}
	return resp
}
