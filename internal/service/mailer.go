package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"edu-platform/config"
)

// Mailer 通知投递接口
type Mailer interface {
	SendResetCode(ctx context.Context, to, code string, ttl time.Duration) error
}

// logMailer 只写日志，不真正发信
// 验证码仅在 debug 级别输出
type logMailer struct {
	from   string
	host   string
	logger *zap.Logger
}

// NewLogMailer 创建日志投递的 Mailer
func NewLogMailer(cfg *config.MailConfig, logger *zap.Logger) Mailer {
	return &logMailer{from: cfg.From, host: cfg.SMTPHost, logger: logger}
}

func (m *logMailer) SendResetCode(_ context.Context, to, code string, ttl time.Duration) error {
	m.logger.Info("发送密码重置验证码",
		zap.String("from", m.from),
		zap.String("to", to),
		zap.String("smtp_host", m.host),
		zap.Duration("ttl", ttl),
	)
	m.logger.Debug("密码重置验证码", zap.String("to", to), zap.String("code", code))
	return nil
}
