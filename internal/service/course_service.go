package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"edu-platform/internal/dto"
	"edu-platform/internal/model"
	"edu-platform/internal/repository"
)

// ── 课程模块业务错误 ──

var (
	ErrCourseNotFound    = errors.New("课程不存在")
	ErrCourseUnavailable = errors.New("课程不存在或已下架")
)

// CourseService 课程业务接口
type CourseService interface {
	List(ctx context.Context, req *dto.CourseListRequest, includeInactive bool) ([]model.Course, error)
	GetByID(ctx context.Context, id int64, includeInactive bool) (*model.Course, error)
	Create(ctx context.Context, req *dto.CreateCourseRequest) (*model.Course, error)
	Update(ctx context.Context, id int64, req *dto.UpdateCourseRequest) (*model.Course, error)
	// Delete 下架课程（is_active=false），已有选课不受影响
	Delete(ctx context.Context, id int64) error
}

type courseService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(repo *repository.Repository, logger *zap.Logger) CourseService {
	return &courseService{repo: repo, logger: logger}
}

func (s *courseService) List(ctx context.Context, req *dto.CourseListRequest, includeInactive bool) ([]model.Course, error) {
	courses, err := s.repo.Course.List(ctx, repository.CourseFilter{
		Level:      strings.TrimSpace(req.Level),
		Search:     strings.TrimSpace(req.Search),
		ActiveOnly: !includeInactive,
	})
	if err != nil {
		s.logger.Error("查询课程列表失败", zap.Error(err))
		return nil, err
	}
	if courses == nil {
		courses = []model.Course{}
	}
	return courses, nil
}

func (s *courseService) GetByID(ctx context.Context, id int64, includeInactive bool) (*model.Course, error) {
	course, err := s.repo.Course.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	if !course.IsActive && !includeInactive {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

func (s *courseService) Create(ctx context.Context, req *dto.CreateCourseRequest) (*model.Course, error) {
	course := &model.Course{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Instructor:  strings.TrimSpace(req.Instructor),
		Price:       req.Price,
		Level:       strings.TrimSpace(req.Level),
		IsActive:    true,
	}
	if err := s.repo.Course.Create(ctx, course); err != nil {
		s.logger.Error("创建课程失败", zap.Error(err))
		return nil, err
	}
	return course, nil
}

func (s *courseService) Update(ctx context.Context, id int64, req *dto.UpdateCourseRequest) (*model.Course, error) {
	fields := make(map[string]any)
	if req.Title != nil {
		fields["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Instructor != nil {
		fields["instructor"] = strings.TrimSpace(*req.Instructor)
	}
	if req.Price != nil {
		fields["price"] = *req.Price
	}
	if req.Level != nil {
		fields["level"] = strings.TrimSpace(*req.Level)
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}

	if len(fields) > 0 {
		if err := s.repo.Course.Update(ctx, id, fields); err != nil {
			if isNotFound(err) {
				return nil, ErrCourseNotFound
			}
			s.logger.Error("更新课程失败", zap.Int64("id", id), zap.Error(err))
			return nil, err
		}
	}
	return s.GetByID(ctx, id, true)
}

func (s *courseService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Course.Update(ctx, id, map[string]any{"is_active": false}); err != nil {
		if isNotFound(err) {
			return ErrCourseNotFound
		}
		s.logger.Error("下架课程失败", zap.Int64("id", id), zap.Error(err))
		return err
	}
	return nil
}
