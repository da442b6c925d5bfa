package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"edu-platform/internal/service"
	"edu-platform/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportEnrollments 导出选课记录
// GET /api/admin/export/enrollments?course_id=
func (h *ExportHandler) ExportEnrollments(c *gin.Context) {
	var courseID int64
	if raw := c.Query("course_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			response.BadRequest(c, response.CodeValidation, "无效的 course_id")
			return
		}
		courseID = id
	}

	buf, filename, err := h.exportSvc.ExportEnrollments(c.Request.Context(), courseID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExportNoEnrollments):
			response.NotFound(c, response.CodeNotFound, err.Error())
		default:
			respondError(c, err)
		}
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
