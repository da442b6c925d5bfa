package model

import "time"

// PasswordReset 找回密码验证码 — 对应 password_resets
type PasswordReset struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	Email     string    `gorm:"column:email"`
	Code      string    `gorm:"column:code"`
	ExpiresAt time.Time `gorm:"column:expires_at"`
	Used      bool      `gorm:"column:used"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName 指定表名
func (PasswordReset) TableName() string { return "password_resets" }

// Usable 未使用且未过期
func (p *PasswordReset) Usable(now time.Time) bool {
	return !p.Used && now.Before(p.ExpiresAt)
}
