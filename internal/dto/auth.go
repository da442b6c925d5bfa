package dto

import "strings"

// ── 认证模块 DTO ──

// LoginRequest 登录请求
// usernameOrEmail 为主字段，兼容旧前端提交的 email / username
type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	UserType        string `json:"userType"`
}

// Identifier 实际用于查找账号的标识
func (r *LoginRequest) Identifier() string {
	for _, v := range []string{r.UsernameOrEmail, r.Email, r.Username} {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// RegisterRequest 注册请求
// 学生注册时可同时提供家长信息，家长账号不存在则一并创建
type RegisterRequest struct {
	Email          string `json:"email"           binding:"required,email"`
	Password       string `json:"password"        binding:"required,min=6,max=72"`
	FirstName      string `json:"first_name"      binding:"max=100"`
	LastName       string `json:"last_name"       binding:"max=100"`
	Phone          string `json:"phone"           binding:"max=30"`
	Username       string `json:"username"        binding:"max=50"`
	Role           string `json:"role"`
	ParentEmail    string `json:"parent_email"    binding:"omitempty,email"`
	ParentPassword string `json:"parent_password" binding:"omitempty,min=6,max=72"`
	ParentPhone    string `json:"parent_phone"    binding:"max=30"`
	ParentName     string `json:"parent_name"     binding:"max=100"`
}

// UpdateProfileRequest 修改个人资料
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,max=100"`
	LastName  *string `json:"last_name"  binding:"omitempty,max=100"`
	Phone     *string `json:"phone"      binding:"omitempty,max=30"`
	Username  *string `json:"username"   binding:"omitempty,max=50"`
}

// ForgotPasswordRequest 申请重置验证码
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// VerifyResetCodeRequest 校验验证码
type VerifyResetCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code"  binding:"required,len=6,numeric"`
}

// ResetPasswordRequest 重置密码
type ResetPasswordRequest struct {
	Email       string `json:"email"        binding:"required,email"`
	Code        string `json:"code"         binding:"required,len=6,numeric"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=72"`
}

// ── 认证模块响应 ──

// AuthResponse 登录 / 注册成功响应
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse 账号信息（脱敏）
type UserResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role"`
	Subject   string `json:"subject,omitempty"`
	Points    int    `json:"points"`
	ParentID  *int64 `json:"parent_id,omitempty"`
	StudentID *int64 `json:"student_id,omitempty"`
	Source    string `json:"source"`
	CreatedAt string `json:"created_at,omitempty"`
}
