package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"edu-platform/config"
	"edu-platform/internal/dto"
	"edu-platform/internal/model"
	"edu-platform/internal/repository"
	"edu-platform/internal/schema"
	pkgerrors "edu-platform/pkg/errors"
	"edu-platform/pkg/jwt"
	"edu-platform/pkg/metrics"
)

// ── 认证模块业务错误 ──

var (
	ErrEmailExists         = errors.New("该邮箱已注册")
	ErrUserNotFound        = errors.New("用户不存在")
	ErrInvalidRole         = errors.New("不支持的注册角色")
	ErrParentEmailSame     = errors.New("家长邮箱不能与学员邮箱相同")
	ErrParentPasswordEmpty = errors.New("新建家长账号需要提供家长密码")
	ErrParentEmailTaken    = errors.New("家长邮箱已被非家长账号使用")
	ErrEmailNotRegistered  = errors.New("该邮箱未注册")
	ErrInvalidResetCode    = errors.New("验证码无效或已过期")
)

// 重置验证码位数
const resetCodeDigits = 6

// TokenBlacklist 登出 Token 黑名单
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Logout(ctx context.Context, claims *jwt.Claims) error
	Me(ctx context.Context, claims *jwt.Claims) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, claims *jwt.Claims, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) error
	VerifyResetCode(ctx context.Context, req *dto.VerifyResetCodeRequest) error
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error
}

type authService struct {
	cfg       *config.Config
	repo      *repository.Repository
	verifier  *CredentialVerifier
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	mailer    Mailer
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService 创建 AuthService 实例；blacklist 可为 nil（未启用 Redis）
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	mailer Mailer,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:       cfg,
		repo:      repo,
		verifier:  NewCredentialVerifier(repo.Credential, cfg.Database.MaxRetries, logger),
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		mailer:    mailer,
		logger:    logger,
		now:       time.Now,
	}
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	account, err := s.verifier.Verify(ctx, req.Identifier(), req.Password, req.UserType)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrMissingCredentials), errors.Is(err, ErrAccountDisabled):
			metrics.LoginAttempts.WithLabelValues("rejected").Inc()
		default:
			metrics.LoginAttempts.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	metrics.LoginAttempts.WithLabelValues("success").Inc()

	return s.issue(account)
}

// ────────────────────── Register ──────────────────────

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = model.RoleStudent
	}
	// 管理员只能由已有管理员在后台设置
	if !model.ValidRole(role) || role == model.RoleAdmin {
		return nil, ErrInvalidRole
	}
	parentEmail := strings.ToLower(strings.TrimSpace(req.ParentEmail))
	if parentEmail != "" && parentEmail == email {
		return nil, ErrParentEmailSame
	}

	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !isNotFound(err) {
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, pkgerrors.Storage("get user by email", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, &pkgerrors.HashingError{Err: err}
	}

	user := &model.User{
		Email:     email,
		Password:  string(hash),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     strings.TrimSpace(req.Phone),
		Username:  strings.TrimSpace(req.Username),
		Role:      role,
	}

	err = s.repo.RunInTx(ctx, func(tx *repository.Repository) error {
		if err := tx.User.Create(ctx, user); err != nil {
			return err
		}
		if role != model.RoleStudent || parentEmail == "" {
			return nil
		}
		return s.linkParent(ctx, tx, user, parentEmail, req)
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrConflict) {
			return nil, ErrEmailExists
		}
		if isDomainError(err) {
			return nil, err
		}
		s.logger.Error("注册失败", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	s.logger.Info("用户注册成功", zap.Int64("id", user.ID), zap.String("role", role))
	return s.issue(accountFromUser(user))
}

// linkParent 为学员创建或复用家长账号，并双向关联
func (s *authService) linkParent(ctx context.Context, tx *repository.Repository, student *model.User, parentEmail string, req *dto.RegisterRequest) error {
	parent, err := tx.User.GetByEmail(ctx, parentEmail)
	switch {
	case err == nil:
		if parent.Role != model.RoleParent {
			return ErrParentEmailTaken
		}
		if parent.StudentID == nil {
			if err := tx.User.Update(ctx, parent.ID, map[string]any{"student_id": student.ID}); err != nil {
				return err
			}
		}
	case isNotFound(err):
		if req.ParentPassword == "" {
			return ErrParentPasswordEmpty
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.ParentPassword), bcrypt.DefaultCost)
		if err != nil {
			return &pkgerrors.HashingError{Err: err}
		}
		first, last := splitName(req.ParentName)
		parent = &model.User{
			Email:     parentEmail,
			Password:  string(hash),
			FirstName: first,
			LastName:  last,
			Phone:     strings.TrimSpace(req.ParentPhone),
			Role:      model.RoleParent,
			StudentID: &student.ID,
		}
		if err := tx.User.Create(ctx, parent); err != nil {
			return err
		}
	default:
		return err
	}

	if err := tx.User.Update(ctx, student.ID, map[string]any{"parent_id": parent.ID}); err != nil {
		return err
	}
	student.ParentID = &parent.ID
	return nil
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.blacklist == nil {
		s.logger.Debug("未启用 Redis，登出仅由客户端丢弃 Token")
		return nil
	}
	ttl := s.jwtMgr.RemainingTTL(claims)
	if ttl <= 0 || claims.ID == "" {
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, claims.ID, ttl); err != nil {
		s.logger.Error("写入 Token 黑名单失败", zap.String("jti", claims.ID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Me / UpdateProfile ──────────────────────

func (s *authService) Me(ctx context.Context, claims *jwt.Claims) (*dto.UserResponse, error) {
	account, err := s.loadAccount(ctx, claims)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(account)
	return &resp, nil
}

func (s *authService) UpdateProfile(ctx context.Context, claims *jwt.Claims, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
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
	if req.Username != nil {
		fields["username"] = strings.TrimSpace(*req.Username)
	}

	if len(fields) > 0 {
		err := s.repo.Credential.UpdateFields(ctx, tableOf(claims), claims.UserID, fields)
		switch {
		case err == nil, errors.Is(err, schema.ErrNothingToWrite):
		case isNotFound(err):
			return nil, ErrUserNotFound
		case errors.Is(err, pkgerrors.ErrConflict):
			return nil, err
		default:
			s.logger.Error("更新个人资料失败", zap.Int64("id", claims.UserID), zap.Error(err))
			return nil, err
		}
	}
	return s.Me(ctx, claims)
}

func (s *authService) loadAccount(ctx context.Context, claims *jwt.Claims) (*model.Account, error) {
	rec, err := s.repo.Credential.FindByID(ctx, tableOf(claims), claims.UserID)
	if err != nil {
		if isNotFound(err) || errors.Is(err, schema.ErrTableNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询账号失败", zap.Int64("id", claims.UserID), zap.Error(err))
		return nil, pkgerrors.Storage("get account", err)
	}
	return &rec.Account, nil
}

// tableOf 旧 Token 没有 table 声明时按 users 处理
func tableOf(claims *jwt.Claims) string {
	if claims.Table == "" {
		return model.TableUsers
	}
	return claims.Table
}

// ────────────────────── 找回密码 ──────────────────────

func (s *authService) ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	rec, err := s.findByEmail(ctx, s.repo, email)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrEmailNotRegistered
	}

	code, err := generateResetCode()
	if err != nil {
		return err
	}
	ttl := s.cfg.Auth.ResetCodeTTL

	err = s.repo.RunInTx(ctx, func(tx *repository.Repository) error {
		if err := tx.PasswordReset.InvalidateEmail(ctx, email); err != nil {
			return err
		}
		return tx.PasswordReset.Create(ctx, &model.PasswordReset{
			Email:     email,
			Code:      code,
			ExpiresAt: s.now().UTC().Add(ttl),
		})
	})
	if err != nil {
		s.logger.Error("保存重置验证码失败", zap.String("email", email), zap.Error(err))
		return pkgerrors.Storage("create password reset", err)
	}

	if err := s.mailer.SendResetCode(ctx, email, code, ttl); err != nil {
		s.logger.Error("发送重置验证码失败", zap.String("email", email), zap.Error(err))
		return err
	}
	return nil
}

func (s *authService) VerifyResetCode(ctx context.Context, req *dto.VerifyResetCodeRequest) error {
	_, err := s.usableReset(ctx, s.repo, req.Email, req.Code)
	return err
}

func (s *authService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return &pkgerrors.HashingError{Err: err}
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	err = s.repo.RunInTx(ctx, func(tx *repository.Repository) error {
		reset, err := s.usableReset(ctx, tx, email, req.Code)
		if err != nil {
			return err
		}
		rec, err := s.findByEmail(ctx, tx, email)
		if err != nil {
			return err
		}
		if rec == nil {
			return ErrEmailNotRegistered
		}
		column := rec.PasswordColumn
		if column == "" {
			column = "password"
		}
		if err := tx.Credential.UpdatePassword(ctx, rec.Account.Table, column, rec.Account.ID, string(hash)); err != nil {
			return err
		}
		if err := tx.PasswordReset.MarkUsed(ctx, reset.ID); err != nil {
			if isNotFound(err) {
				return ErrInvalidResetCode
			}
			return err
		}
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return err
		}
		s.logger.Error("重置密码失败", zap.String("email", email), zap.Error(err))
		return pkgerrors.Storage("reset password", err)
	}
	return nil
}

func (s *authService) usableReset(ctx context.Context, repo *repository.Repository, email, code string) (*model.PasswordReset, error) {
	reset, err := repo.PasswordReset.FindLatest(ctx, strings.ToLower(strings.TrimSpace(email)), code)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidResetCode
		}
		s.logger.Error("查询重置验证码失败", zap.Error(err))
		return nil, pkgerrors.Storage("find password reset", err)
	}
	if !reset.Usable(s.now().UTC()) {
		return nil, ErrInvalidResetCode
	}
	return reset, nil
}

// findByEmail 在全部账号表中按邮箱查找；未找到返回 nil
func (s *authService) findByEmail(ctx context.Context, repo *repository.Repository, email string) (*repository.CredentialRecord, error) {
	for _, table := range candidateTables("") {
		rec, err := repo.Credential.FindByIdentifier(ctx, table, email)
		switch {
		case err == nil:
			if strings.EqualFold(rec.Account.Email, email) {
				return rec, nil
			}
		case isNotFound(err), errors.Is(err, schema.ErrTableNotFound):
		default:
			s.logger.Error("查询账号失败", zap.String("table", table), zap.Error(err))
			return nil, pkgerrors.Storage("lookup "+table, err)
		}
	}
	return nil, nil
}

// ────────────────────── 内部工具 ──────────────────────

func (s *authService) issue(account *model.Account) (*dto.AuthResponse, error) {
	token, err := s.jwtMgr.GenerateToken(jwt.Subject{
		UserID: account.ID,
		Email:  account.Email,
		Role:   account.Role,
		Table:  account.Table,
	})
	if err != nil {
		s.logger.Error("生成 Token 失败", zap.Error(err))
		return nil, err
	}
	return &dto.AuthResponse{Token: token, User: toUserResponse(account)}, nil
}

// generateResetCode 6 位数字验证码
func generateResetCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("生成验证码失败: %w", err)
	}
	return fmt.Sprintf("%0*d", resetCodeDigits, n.Int64()), nil
}
