package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"edu-platform/internal/dto"
	"edu-platform/internal/model"
	"edu-platform/internal/repository"
	"edu-platform/internal/schema"
	pkgerrors "edu-platform/pkg/errors"
)

// ── 选课模块业务错误 ──

var (
	ErrStudentNotFound    = errors.New("学员不存在")
	ErrEnrollmentNotFound = errors.New("选课记录不存在")
	ErrExpiryInPast       = errors.New("到期时间必须晚于当前时间")
)

// EnrollmentService 选课业务接口
type EnrollmentService interface {
	// Grant 开通课程；已开通时返回 AlreadyEnrolled，已撤销的记录重新激活
	Grant(ctx context.Context, req *dto.GrantAccessRequest) (*dto.GrantAccessResponse, error)
	Revoke(ctx context.Context, req *dto.RevokeAccessRequest) error
	List(ctx context.Context, req *dto.EnrollmentListRequest) ([]dto.EnrollmentResponse, error)
	MyCourses(ctx context.Context, userID int64) ([]dto.MyCourseResponse, error)
}

type enrollmentService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewEnrollmentService 创建 EnrollmentService 实例
func NewEnrollmentService(repo *repository.Repository, logger *zap.Logger) EnrollmentService {
	return &enrollmentService{repo: repo, logger: logger, now: time.Now}
}

// ────────────────────── Grant ──────────────────────

func (s *enrollmentService) Grant(ctx context.Context, req *dto.GrantAccessRequest) (*dto.GrantAccessResponse, error) {
	expiresAt, err := parseOptionalTime(req.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if expiresAt != nil && !expiresAt.After(s.now()) {
		return nil, ErrExpiryInPast
	}

	if err := s.ensureStudent(ctx, req.StudentID); err != nil {
		return nil, err
	}
	if _, err := s.repo.Course.GetByID(ctx, req.CourseID); err != nil {
		if isNotFound(err) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.Int64("course_id", req.CourseID), zap.Error(err))
		return nil, err
	}

	var result grantResult
	err = s.repo.RunInTx(ctx, func(tx *repository.Repository) error {
		var err error
		result, err = grantEnrollment(ctx, tx, req.StudentID, req.CourseID, expiresAt, true, s.now())
		return err
	})
	if err != nil {
		s.logger.Error("开通课程失败",
			zap.Int64("student_id", req.StudentID),
			zap.Int64("course_id", req.CourseID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("开通课程",
		zap.Int64("student_id", req.StudentID),
		zap.Int64("course_id", req.CourseID),
		zap.Bool("already_enrolled", !result.created && !result.reactivated),
	)
	return &dto.GrantAccessResponse{
		EnrollmentID:    result.id,
		AlreadyEnrolled: !result.created && !result.reactivated,
		Reactivated:     result.reactivated,
	}, nil
}

// ensureStudent 学员可能在 users 或历史 students 表中
func (s *enrollmentService) ensureStudent(ctx context.Context, id int64) error {
	_, err := s.repo.User.GetByID(ctx, id)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		s.logger.Error("查询学员失败", zap.Int64("student_id", id), zap.Error(err))
		return err
	}
	_, err = s.repo.Credential.FindByID(ctx, model.TableStudents, id)
	switch {
	case err == nil:
		return nil
	case isNotFound(err), errors.Is(err, schema.ErrTableNotFound):
		return ErrStudentNotFound
	}
	s.logger.Error("查询学员失败", zap.Int64("student_id", id), zap.Error(err))
	return err
}

type grantResult struct {
	id          int64
	created     bool
	reactivated bool
}

// grantEnrollment 幂等开通：已有有效记录直接返回，已撤销或过期的重新激活
// 并发插入撞上唯一索引时回读已存在的记录
func grantEnrollment(ctx context.Context, repo *repository.Repository, userID, courseID int64, expiresAt *time.Time, byAdmin bool, now time.Time) (grantResult, error) {
	existing, err := repo.Enrollment.FindPair(ctx, userID, courseID)
	switch {
	case err == nil:
		if existing.Active(now) {
			return grantResult{id: existing.ID}, nil
		}
		if err := repo.Enrollment.Reactivate(ctx, existing.ID, expiresAt); err != nil {
			return grantResult{}, err
		}
		return grantResult{id: existing.ID, reactivated: true}, nil
	case !isNotFound(err):
		return grantResult{}, err
	}

	e := &model.Enrollment{
		UserID:         userID,
		CourseID:       courseID,
		GrantedByAdmin: byAdmin,
		ExpiresAt:      expiresAt,
	}
	if err := repo.Enrollment.Create(ctx, e); err != nil {
		if errors.Is(err, pkgerrors.ErrConflict) {
			if existing, ferr := repo.Enrollment.FindPair(ctx, userID, courseID); ferr == nil {
				return grantResult{id: existing.ID}, nil
			}
		}
		return grantResult{}, err
	}
	return grantResult{id: e.ID, created: true}, nil
}

// ────────────────────── Revoke ──────────────────────

func (s *enrollmentService) Revoke(ctx context.Context, req *dto.RevokeAccessRequest) error {
	revoked, err := s.repo.Enrollment.Revoke(ctx, req.StudentID, req.CourseID)
	if err != nil {
		s.logger.Error("撤销课程失败",
			zap.Int64("student_id", req.StudentID),
			zap.Int64("course_id", req.CourseID),
			zap.Error(err),
		)
		return err
	}
	if !revoked {
		return ErrEnrollmentNotFound
	}
	return nil
}

// ────────────────────── List ──────────────────────

func (s *enrollmentService) List(ctx context.Context, req *dto.EnrollmentListRequest) ([]dto.EnrollmentResponse, error) {
	list, err := s.repo.Enrollment.List(ctx, req.StudentID, req.CourseID)
	if err != nil {
		s.logger.Error("查询选课记录失败", zap.Error(err))
		return nil, err
	}

	// 批量补全学员与课程信息，避免 N+1
	userIDs := make([]int64, 0, len(list))
	courseIDs := make([]int64, 0, len(list))
	for _, e := range list {
		userIDs = append(userIDs, e.UserID)
		courseIDs = append(courseIDs, e.CourseID)
	}
	users, err := s.repo.User.GetByIDs(ctx, userIDs)
	if err != nil {
		s.logger.Warn("批量查询学员失败", zap.Error(err))
	}
	courses, err := s.repo.Course.GetByIDs(ctx, courseIDs)
	if err != nil {
		s.logger.Warn("批量查询课程失败", zap.Error(err))
	}
	userMap := make(map[int64]*model.User, len(users))
	for i := range users {
		userMap[users[i].ID] = &users[i]
	}
	courseMap := make(map[int64]*model.Course, len(courses))
	for i := range courses {
		courseMap[courses[i].ID] = &courses[i]
	}

	now := s.now()
	result := make([]dto.EnrollmentResponse, 0, len(list))
	for i := range list {
		e := &list[i]
		item := dto.EnrollmentResponse{
			ID:             e.ID,
			StudentID:      e.UserID,
			CourseID:       e.CourseID,
			Status:         e.Status,
			Active:         e.Active(now),
			GrantedByAdmin: e.GrantedByAdmin,
			ExpiresAt:      formatTime(e.ExpiresAt),
			CreatedAt:      formatTime(e.CreatedAt),
		}
		if u, ok := userMap[e.UserID]; ok {
			item.StudentEmail = u.Email
			item.StudentName = accountFromUser(u).DisplayName()
		}
		if c, ok := courseMap[e.CourseID]; ok {
			item.CourseTitle = c.Title
		}
		result = append(result, item)
	}
	return result, nil
}

// ────────────────────── MyCourses ──────────────────────

func (s *enrollmentService) MyCourses(ctx context.Context, userID int64) ([]dto.MyCourseResponse, error) {
	list, err := s.repo.Enrollment.List(ctx, userID, 0)
	if err != nil {
		s.logger.Error("查询我的课程失败", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}

	now := s.now()
	expiry := make(map[int64]*time.Time)
	ids := make([]int64, 0, len(list))
	for i := range list {
		if !list[i].Active(now) {
			continue
		}
		if _, seen := expiry[list[i].CourseID]; !seen {
			ids = append(ids, list[i].CourseID)
		}
		expiry[list[i].CourseID] = list[i].ExpiresAt
	}

	courses, err := s.repo.Course.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询课程失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.MyCourseResponse, 0, len(courses))
	for _, c := range courses {
		result = append(result, dto.MyCourseResponse{
			CourseID:    c.ID,
			Title:       c.Title,
			Description: c.Description,
			Instructor:  c.Instructor,
			Level:       c.Level,
			Price:       c.Price,
			ExpiresAt:   formatTime(expiry[c.ID]),
		})
	}
	return result, nil
}
