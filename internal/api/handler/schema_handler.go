package handler

import (
	"github.com/gin-gonic/gin"

	"edu-platform/internal/service"
	"edu-platform/pkg/response"
)

// SchemaHandler 表结构校正（管理员）
type SchemaHandler struct {
	schemaSvc service.SchemaService
}

// NewSchemaHandler 创建 SchemaHandler
func NewSchemaHandler(schemaSvc service.SchemaService) *SchemaHandler {
	return &SchemaHandler{schemaSvc: schemaSvc}
}

// Status 各校正步骤最近一次结果
// GET /api/admin/schema
func (h *SchemaHandler) Status(c *gin.Context) {
	list, err := h.schemaSvc.Status(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, list)
}

// Reconcile 立即执行一轮校正，单步失败不影响其余步骤
// POST /api/admin/schema/reconcile
func (h *SchemaHandler) Reconcile(c *gin.Context) {
	response.OK(c, h.schemaSvc.Reconcile(c.Request.Context()))
}
