package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"edu-platform/internal/dto"
	"edu-platform/internal/model"
	"edu-platform/internal/repository"
	pkgerrors "edu-platform/pkg/errors"
)

// ── 用户管理模块业务错误 ──

var (
	ErrUserSelfRoleChange = errors.New("不能修改自己的角色")
	ErrUserSelfDisable    = errors.New("不能停用自己")
	ErrNotStudent         = errors.New("该用户不是学员")
)

// UserService 管理员用户管理接口（users 表）
type UserService interface {
	ListStudents(ctx context.Context, req *dto.StudentListRequest) ([]dto.UserResponse, int64, error)
	Update(ctx context.Context, id int64, req *dto.AdminUpdateUserRequest, callerID int64) (*dto.UserResponse, error)
	// DeleteStudent 删除学员及其选课记录
	DeleteStudent(ctx context.Context, id int64) error
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// ────────────────────── ListStudents ──────────────────────

func (s *userService) ListStudents(ctx context.Context, req *dto.StudentListRequest) ([]dto.UserResponse, int64, error) {
	users, total, err := s.repo.User.ListByRole(ctx, model.RoleStudent, strings.TrimSpace(req.Search), req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询学员列表失败", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, toUserResponse(accountFromUser(&users[i])))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *userService) Update(ctx context.Context, id int64, req *dto.AdminUpdateUserRequest, callerID int64) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	fields := make(map[string]any)
	if req.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		fields["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		fields["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Role != nil && *req.Role != user.Role {
		if id == callerID {
			return nil, ErrUserSelfRoleChange
		}
		fields["role"] = *req.Role
	}
	if req.Points != nil {
		fields["points"] = *req.Points
	}
	if req.IsActive != nil {
		if id == callerID && !*req.IsActive {
			return nil, ErrUserSelfDisable
		}
		fields["is_active"] = *req.IsActive
	}

	if len(fields) > 0 {
		if err := s.repo.User.Update(ctx, id, fields); err != nil {
			switch {
			case isNotFound(err):
				return nil, ErrUserNotFound
			case errors.Is(err, pkgerrors.ErrConflict):
				return nil, ErrEmailExists
			}
			s.logger.Error("更新用户失败", zap.Int64("id", id), zap.Error(err))
			return nil, err
		}
	}

	updated, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("查询用户失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	resp := toUserResponse(accountFromUser(updated))
	return &resp, nil
}

// ────────────────────── DeleteStudent ──────────────────────

func (s *userService) DeleteStudent(ctx context.Context, id int64) error {
	err := s.repo.RunInTx(ctx, func(tx *repository.Repository) error {
		user, err := tx.User.GetByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return ErrUserNotFound
			}
			return err
		}
		if user.Role != model.RoleStudent {
			return ErrNotStudent
		}
		if _, err := tx.Enrollment.DeleteByUser(ctx, id); err != nil {
			return err
		}
		return tx.User.Delete(ctx, id)
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("删除学员失败", zap.Int64("id", id), zap.Error(err))
		}
		return err
	}
	s.logger.Info("学员已删除", zap.Int64("id", id))
	return nil
}
