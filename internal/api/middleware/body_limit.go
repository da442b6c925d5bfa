package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"edu-platform/pkg/response"
)

// RouteLimit 单个路由的请求体上限，Path 为路由模板（与 c.FullPath() 一致）
type RouteLimit struct {
	Path     string
	MaxBytes int64
}

// BodyLimit 全局请求体大小限制中间件
// maxBytes 为默认上限；overrides 中列出的路由改用各自的上限（如 ICS 上传）
func BodyLimit(maxBytes int64, overrides ...RouteLimit) gin.HandlerFunc {
	perRoute := make(map[string]int64, len(overrides))
	for _, o := range overrides {
		perRoute[o.Path] = o.MaxBytes
	}

	return func(c *gin.Context) {
		limit := maxBytes
		if n, ok := perRoute[c.FullPath()]; ok {
			limit = n
		}
		if c.Request.Body != nil && limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}

		c.Next()

		if c.IsAborted() || c.Writer.Written() {
			return
		}
		for _, err := range c.Errors {
			if IsBodyTooLarge(err.Err) {
				response.Error(c, http.StatusRequestEntityTooLarge, response.CodeValidation, "请求体过大")
				return
			}
		}
	}
}

// IsBodyTooLarge 读取请求体时是否超出上限
func IsBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}
