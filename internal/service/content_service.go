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

// ── 教学内容模块业务错误 ──

var (
	ErrContentNotFound = errors.New("内容不存在")
	ErrNoPermission    = errors.New("无权操作")
)

// Caller 当前操作人
type Caller struct {
	UserID int64
	Role   string
}

// canEdit 管理员可改全部，教师只能改自己的
func (c Caller) canEdit(item *model.ContentItem) bool {
	return c.Role == model.RoleAdmin || (c.Role == model.RoleTeacher && item.TeacherID == c.UserID)
}

// ContentService 讲座 / 作业 / 测验 / 考试业务接口
type ContentService interface {
	List(ctx context.Context, kind model.ContentKind, subject string) ([]model.ContentItem, error)
	Get(ctx context.Context, kind model.ContentKind, id int64) (*model.ContentItem, error)
	Create(ctx context.Context, kind model.ContentKind, caller Caller, req *dto.ContentRequest) (*model.ContentItem, error)
	Update(ctx context.Context, kind model.ContentKind, id int64, caller Caller, req *dto.ContentRequest) (*model.ContentItem, error)
	Delete(ctx context.Context, kind model.ContentKind, id int64, caller Caller) error
	// Import 从 iCalendar 文件批量导入讲座
	Import(ctx context.Context, caller Caller, subject string, events []ImportedEvent) (int, error)
}

type contentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewContentService 创建 ContentService 实例
func NewContentService(repo *repository.Repository, logger *zap.Logger) ContentService {
	return &contentService{repo: repo, logger: logger}
}

func (s *contentService) List(ctx context.Context, kind model.ContentKind, subject string) ([]model.ContentItem, error) {
	items, err := s.repo.Content.List(ctx, kind, strings.TrimSpace(subject))
	if err != nil {
		s.logger.Error("查询内容列表失败", zap.String("kind", string(kind)), zap.Error(err))
		return nil, err
	}
	if items == nil {
		items = []model.ContentItem{}
	}
	return items, nil
}

func (s *contentService) Get(ctx context.Context, kind model.ContentKind, id int64) (*model.ContentItem, error) {
	item, err := s.repo.Content.GetByID(ctx, kind, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrContentNotFound
		}
		s.logger.Error("查询内容失败", zap.String("kind", string(kind)), zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	if !item.IsActive {
		return nil, ErrContentNotFound
	}
	return item, nil
}

func (s *contentService) Create(ctx context.Context, kind model.ContentKind, caller Caller, req *dto.ContentRequest) (*model.ContentItem, error) {
	date, err := parseOptionalTime(req.Date)
	if err != nil {
		return nil, err
	}
	item := &model.ContentItem{
		Kind:        kind,
		TeacherID:   caller.UserID,
		Subject:     strings.TrimSpace(req.Subject),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Date:        date,
		IsActive:    true,
	}
	if kind.DateColumn() == "" {
		item.Date = nil
	}
	if err := s.repo.Content.Create(ctx, item); err != nil {
		s.logger.Error("创建内容失败", zap.String("kind", string(kind)), zap.Error(err))
		return nil, err
	}
	return item, nil
}

func (s *contentService) Update(ctx context.Context, kind model.ContentKind, id int64, caller Caller, req *dto.ContentRequest) (*model.ContentItem, error) {
	item, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !caller.canEdit(item) {
		return nil, ErrNoPermission
	}
	date, err := parseOptionalTime(req.Date)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"subject":     strings.TrimSpace(req.Subject),
		"title":       strings.TrimSpace(req.Title),
		"description": req.Description,
	}
	if date != nil {
		fields["date"] = *date
	}
	if err := s.repo.Content.Update(ctx, kind, id, fields); err != nil {
		if isNotFound(err) {
			return nil, ErrContentNotFound
		}
		s.logger.Error("更新内容失败", zap.String("kind", string(kind)), zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return s.Get(ctx, kind, id)
}

func (s *contentService) Delete(ctx context.Context, kind model.ContentKind, id int64, caller Caller) error {
	item, err := s.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	if !caller.canEdit(item) {
		return ErrNoPermission
	}
	if err := s.repo.Content.SoftDelete(ctx, kind, id); err != nil {
		if isNotFound(err) {
			return ErrContentNotFound
		}
		s.logger.Error("删除内容失败", zap.String("kind", string(kind)), zap.Int64("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *contentService) Import(ctx context.Context, caller Caller, subject string, events []ImportedEvent) (int, error) {
	if len(events) == 0 {
		return 0, ErrICSNoEvents
	}
	subject = strings.TrimSpace(subject)

	err := s.repo.RunInTx(ctx, func(tx *repository.Repository) error {
		for i := range events {
			start := events[i].Start.UTC()
			item := &model.ContentItem{
				Kind:        model.KindLecture,
				TeacherID:   caller.UserID,
				Subject:     subject,
				Title:       events[i].Summary,
				Description: events[i].Description,
				Date:        &start,
				IsActive:    true,
			}
			if err := tx.Content.Create(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("导入讲座失败", zap.Int64("teacher_id", caller.UserID), zap.Error(err))
		return 0, err
	}

	s.logger.Info("导入讲座", zap.Int64("teacher_id", caller.UserID), zap.Int("count", len(events)))
	return len(events), nil
}
