package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"edu-platform/internal/model"
	"edu-platform/internal/repository"
	"edu-platform/internal/schema"
	"edu-platform/pkg/database"
	pkgerrors "edu-platform/pkg/errors"
	"edu-platform/pkg/metrics"
)

// ── 认证校验错误 ──

var (
	ErrMissingCredentials = errors.New("请输入用户名/邮箱和密码")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrAccountDisabled    = errors.New("账号已停用")
)

// bcrypt 哈希前缀；其余值视为历史明文
var hashMarkers = []string{"$2a$", "$2b$", "$2y$"}

// 口令升级写入的超时，不受请求取消影响
const upgradeTimeout = 5 * time.Second

// CredentialVerifier 跨账号表校验登录凭据
//
// 查找顺序：
//   - 未指定 userType 时依次尝试 users、students、teachers
//   - 指定 student / teacher 时先查 users（角色须一致），再查对应的历史表
//   - 指定 admin / parent 时只查 users
//
// 口令或角色不符的行跳过，继续后续表；第一条校验通过的行生效。
// 历史明文口令校验通过后立即改写为 bcrypt 哈希；改写失败只记录日志，不影响登录
type CredentialVerifier struct {
	creds      repository.CredentialRepository
	maxRetries uint64
	cost       int
	logger     *zap.Logger
}

// NewCredentialVerifier 创建 CredentialVerifier
func NewCredentialVerifier(creds repository.CredentialRepository, maxRetries uint64, logger *zap.Logger) *CredentialVerifier {
	return &CredentialVerifier{
		creds:      creds,
		maxRetries: maxRetries,
		cost:       bcrypt.DefaultCost,
		logger:     logger,
	}
}

// candidateTables userType 到账号表的映射
func candidateTables(userType string) []string {
	switch strings.ToLower(strings.TrimSpace(userType)) {
	case model.RoleStudent:
		return []string{model.TableUsers, model.TableStudents}
	case model.RoleTeacher:
		return []string{model.TableUsers, model.TableTeachers}
	case model.RoleAdmin, model.RoleParent:
		return []string{model.TableUsers}
	}
	return []string{model.TableUsers, model.TableStudents, model.TableTeachers}
}

// IsHashed 是否为受支持的哈希格式
func IsHashed(stored string) bool {
	for _, m := range hashMarkers {
		if strings.HasPrefix(stored, m) {
			return true
		}
	}
	return false
}

// Verify 校验凭据并返回账号
func (v *CredentialVerifier) Verify(ctx context.Context, identifier, password, userType string) (*model.Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	userType = strings.ToLower(strings.TrimSpace(userType))

	for _, table := range candidateTables(userType) {
		rec, err := v.lookup(ctx, table, identifier)
		if err != nil {
			return nil, err
		}
		if rec == nil || !roleMatches(rec, userType) || !v.passwordMatches(rec, password) {
			continue
		}

		if !IsHashed(rec.Password) {
			v.upgrade(ctx, rec, password)
		}
		if !rec.Account.IsActive {
			return nil, ErrAccountDisabled
		}
		return &rec.Account, nil
	}
	return nil, ErrInvalidCredentials
}

// lookup 在单张表中查找；表不存在或无匹配时返回 nil
func (v *CredentialVerifier) lookup(ctx context.Context, table, identifier string) (*repository.CredentialRecord, error) {
	rec, err := v.creds.FindByIdentifier(ctx, table, identifier)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, schema.ErrTableNotFound):
		v.logger.Debug("账号表不存在，跳过", zap.String("table", table))
		return nil, nil
	case isNotFound(err):
		return nil, nil
	default:
		v.logger.Error("查询账号失败", zap.String("table", table), zap.Error(err))
		return nil, pkgerrors.Storage("lookup "+table, err)
	}
}

// roleMatches users 表的账号须与请求的 userType 一致；历史表由表名决定角色
func roleMatches(rec *repository.CredentialRecord, userType string) bool {
	if userType == "" || rec.Account.Table != model.TableUsers {
		return true
	}
	return strings.EqualFold(rec.Account.Role, userType)
}

func (v *CredentialVerifier) passwordMatches(rec *repository.CredentialRecord, password string) bool {
	if rec.Password == "" {
		return false
	}
	if IsHashed(rec.Password) {
		return bcrypt.CompareHashAndPassword([]byte(rec.Password), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(rec.Password), []byte(password)) == 1
}

// upgrade 把明文口令改写为 bcrypt 哈希，失败只记录
func (v *CredentialVerifier) upgrade(ctx context.Context, rec *repository.CredentialRecord, password string) {
	log := v.logger.With(
		zap.String("table", rec.Account.Table),
		zap.Int64("id", rec.Account.ID),
	)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), v.cost)
	if err != nil {
		log.Error("明文口令升级失败", zap.Error(&pkgerrors.HashingError{Err: err}))
		metrics.PasswordUpgrades.WithLabelValues("failed").Inc()
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), upgradeTimeout)
	defer cancel()

	err = database.WithRetry(ctx, v.maxRetries, func(ctx context.Context) error {
		return v.creds.UpdatePassword(ctx, rec.Account.Table, rec.PasswordColumn, rec.Account.ID, string(hash))
	})
	if err != nil {
		log.Error("明文口令升级失败", zap.Error(&pkgerrors.HashingError{Err: err}))
		metrics.PasswordUpgrades.WithLabelValues("failed").Inc()
		return
	}

	log.Info("明文口令已升级为 bcrypt")
	metrics.PasswordUpgrades.WithLabelValues("upgraded").Inc()
	rec.Password = string(hash)
}
