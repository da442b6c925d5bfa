package service

import (
	"errors"

	"go.uber.org/zap"

	"edu-platform/config"
	"edu-platform/internal/repository"
	"edu-platform/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	Course     CourseService
	Order      OrderService
	Enrollment EnrollmentService
	Content    ContentService
	User       UserService
	Export     ExportService
	Calendar   CalendarService
	Schema     SchemaService
}

// NewService 创建 Service 聚合
// blacklist 为 nil 时登出不写黑名单
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	reconciler Reconciler,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) *Service {
	enrollment := NewEnrollmentService(repo, logger)
	return &Service{
		Auth:       NewAuthService(cfg, repo, jwtMgr, blacklist, NewLogMailer(&cfg.Mail, logger), logger),
		Course:     NewCourseService(repo, logger),
		Order:      NewOrderService(repo, logger),
		Enrollment: enrollment,
		Content:    NewContentService(repo, logger),
		User:       NewUserService(repo, logger),
		Export:     NewExportService(enrollment, logger),
		Calendar:   NewCalendarService(repo, logger),
		Schema:     NewSchemaService(reconciler, logger),
	}
}

// domainErrors 可直接返回给调用方的业务错误，无需额外记录日志
var domainErrors = []error{
	ErrMissingCredentials, ErrInvalidCredentials, ErrAccountDisabled,
	ErrEmailExists, ErrUserNotFound, ErrInvalidRole,
	ErrParentEmailSame, ErrParentPasswordEmpty, ErrParentEmailTaken,
	ErrEmailNotRegistered, ErrInvalidResetCode,
	ErrCourseNotFound, ErrCourseUnavailable,
	ErrEmptyOrder, ErrOrderNotFound, ErrOrderNotPending, ErrAmbiguousCourse,
	ErrStudentNotFound, ErrEnrollmentNotFound, ErrExpiryInPast,
	ErrContentNotFound, ErrNoPermission,
	ErrUserSelfRoleChange, ErrUserSelfDisable, ErrNotStudent,
	ErrInvalidTime, ErrICSInvalid, ErrICSNoEvents,
}

func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
