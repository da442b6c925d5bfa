package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"edu-platform/internal/dto"
	"edu-platform/internal/service"
	"edu-platform/pkg/response"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login 用户登录
// POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "参数校验失败")
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   result.Token,
		"user":    result.User,
	})
}

// Register 用户注册
// POST /api/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "参数校验失败", err.Error())
		return
	}

	result, err := h.authSvc.Register(c.Request.Context(), &req)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"message": "Registration successful",
		"token":   result.Token,
		"user":    result.User,
	})
}

// Logout 用户登出，Token 写入黑名单直至过期
// POST /api/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}
	if err := h.authSvc.Logout(c.Request.Context(), claims); err != nil {
		respondError(c, err)
		return
	}
	response.OKMessage(c, "已退出登录")
}

// Me 当前账号信息
// GET /api/me
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}
	user, err := h.authSvc.Me(c.Request.Context(), claims)
	if err != nil {
		handleAuthError(c, err)
		return
	}
	response.OK(c, user)
}

// UpdateProfile 修改个人资料
// PUT /api/profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "参数校验失败")
		return
	}
	user, err := h.authSvc.UpdateProfile(c.Request.Context(), claims, &req)
	if err != nil {
		handleAuthError(c, err)
		return
	}
	response.OK(c, user)
}

// ForgotPassword 申请重置验证码
// POST /api/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "请输入有效的邮箱")
		return
	}
	if err := h.authSvc.ForgotPassword(c.Request.Context(), &req); err != nil {
		handleAuthError(c, err)
		return
	}
	response.OKMessage(c, "验证码已发送，请查收邮件")
}

// VerifyResetCode 校验验证码
// POST /api/verify-reset-code
func (h *AuthHandler) VerifyResetCode(c *gin.Context) {
	var req dto.VerifyResetCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "参数校验失败")
		return
	}
	if err := h.authSvc.VerifyResetCode(c.Request.Context(), &req); err != nil {
		handleAuthError(c, err)
		return
	}
	response.OKMessage(c, "验证码有效")
}

// ResetPassword 使用验证码重置密码
// POST /api/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "参数校验失败")
		return
	}
	if err := h.authSvc.ResetPassword(c.Request.Context(), &req); err != nil {
		handleAuthError(c, err)
		return
	}
	response.OKMessage(c, "密码已重置，请重新登录")
}

func handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMissingCredentials),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrParentEmailSame),
		errors.Is(err, service.ErrParentPasswordEmpty),
		errors.Is(err, service.ErrInvalidResetCode):
		response.BadRequest(c, response.CodeValidation, err.Error())
	case errors.Is(err, service.ErrEmailExists), errors.Is(err, service.ErrParentEmailTaken):
		response.BadRequest(c, response.CodeConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, response.CodeUnauthenticated, "Invalid credentials")
	case errors.Is(err, service.ErrAccountDisabled):
		response.Forbidden(c, response.CodeForbidden, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, response.CodeNotFound, err.Error())
	case errors.Is(err, service.ErrEmailNotRegistered):
		// 前端据此跳转注册页
		response.JSON(c, http.StatusNotFound, gin.H{
			"code":               response.CodeNotFound,
			"message":            err.Error(),
			"redirectToRegister": true,
		})
	default:
		respondError(c, err)
	}
}
