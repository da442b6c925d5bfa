package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"edu-platform/internal/api/middleware"
	"edu-platform/internal/schema"
	"edu-platform/internal/service"
	pkgerrors "edu-platform/pkg/errors"
	"edu-platform/pkg/jwt"
	"edu-platform/pkg/response"
)

// MustGetClaims 从 Gin 上下文中提取 JWT 声明。
// 如果 JWT 中间件未注入，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(middleware.ContextClaims)
	if !exists {
		response.Unauthorized(c, response.CodeUnauthenticated, "未认证")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil || claims.UserID <= 0 {
		response.Unauthorized(c, response.CodeUnauthenticated, "未认证")
		return nil, false
	}
	return claims, true
}

// MustGetUserID 从 Gin 上下文中提取 user_id。
func MustGetUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(middleware.ContextUserID)
	if !exists {
		response.Unauthorized(c, response.CodeUnauthenticated, "未认证")
		return 0, false
	}
	id, ok := v.(int64)
	if !ok || id <= 0 {
		response.Unauthorized(c, response.CodeUnauthenticated, "未认证")
		return 0, false
	}
	return id, true
}

// currentCaller 内容模块的操作人
func currentCaller(c *gin.Context) (service.Caller, bool) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return service.Caller{}, false
	}
	return service.Caller{UserID: claims.UserID, Role: claims.Role}, true
}

// parseIDParam 解析路径中的正整数 id，失败时写入 400
func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, response.CodeValidation, "无效的 "+name)
		return 0, false
	}
	return id, true
}

// respondError 各模块未单独映射的错误
// 错误挂到 gin.Context 上由请求日志输出，响应中不暴露细节
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var missing *schema.MissingColumnError
	var storage *pkgerrors.StorageError
	switch {
	case errors.Is(err, pkgerrors.ErrConflict):
		response.BadRequest(c, response.CodeConflict, "记录已存在")
	case errors.Is(err, service.ErrInvalidTime):
		response.BadRequest(c, response.CodeValidation, err.Error())
	case errors.As(err, &missing), errors.As(err, &storage):
		response.DatabaseError(c)
	default:
		response.InternalError(c)
	}
}
