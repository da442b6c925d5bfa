package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"edu-platform/internal/api/middleware"
	"edu-platform/internal/dto"
	"edu-platform/internal/model"
	"edu-platform/internal/service"
	"edu-platform/pkg/response"
)

// ContentHandler 讲座 / 作业 / 测验 / 考试
// 四类内容共用一组处理函数，按 kind 生成
type ContentHandler struct {
	contentSvc service.ContentService
}

// NewContentHandler 创建 ContentHandler
func NewContentHandler(contentSvc service.ContentService) *ContentHandler {
	return &ContentHandler{contentSvc: contentSvc}
}

// List GET /api/{kind}?subject=
func (h *ContentHandler) List(kind model.ContentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.ContentListRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			response.BadRequest(c, response.CodeValidation, "参数校验失败")
			return
		}
		items, err := h.contentSvc.List(c.Request.Context(), kind, strings.TrimSpace(req.Subject))
		if err != nil {
			respondError(c, err)
			return
		}
		response.OK(c, items)
	}
}

// Get GET /api/{kind}/:id
func (h *ContentHandler) Get(kind model.ContentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		item, err := h.contentSvc.Get(c.Request.Context(), kind, id)
		if err != nil {
			handleContentError(c, err)
			return
		}
		response.OK(c, item)
	}
}

// Create POST /api/{kind}
func (h *ContentHandler) Create(kind model.ContentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := currentCaller(c)
		if !ok {
			return
		}
		var req dto.ContentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, response.CodeValidation, "subject 与 title 必填")
			return
		}
		item, err := h.contentSvc.Create(c.Request.Context(), kind, caller, &req)
		if err != nil {
			handleContentError(c, err)
			return
		}
		response.Created(c, item)
	}
}

// Update PUT /api/{kind}/:id
func (h *ContentHandler) Update(kind model.ContentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := currentCaller(c)
		if !ok {
			return
		}
		id, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		var req dto.ContentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, response.CodeValidation, "subject 与 title 必填")
			return
		}
		item, err := h.contentSvc.Update(c.Request.Context(), kind, id, caller, &req)
		if err != nil {
			handleContentError(c, err)
			return
		}
		response.OK(c, item)
	}
}

// Delete DELETE /api/{kind}/:id
func (h *ContentHandler) Delete(kind model.ContentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := currentCaller(c)
		if !ok {
			return
		}
		id, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		if err := h.contentSvc.Delete(c.Request.Context(), kind, id, caller); err != nil {
			handleContentError(c, err)
			return
		}
		response.OKMessage(c, "已删除")
	}
}

// ImportBodyLimit 讲座导入接口的请求体上限：文件上限加上表单开销
const ImportBodyLimit = service.ICSMaxFileSize + 1<<20

// ImportLectures 上传 .ics 批量创建讲座
// POST /api/lectures/import  multipart: file, subject
func (h *ContentHandler) ImportLectures(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	// 先解析表单：请求体超限时 PostForm 只会返回空值
	if _, err := c.MultipartForm(); err != nil {
		if middleware.IsBodyTooLarge(err) {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeValidation,
				fmt.Sprintf("文件不能超过 %d MB", service.ICSMaxFileSize/1024/1024))
			return
		}
		response.BadRequest(c, response.CodeValidation, "请上传 .ics 文件")
		return
	}
	subject := strings.TrimSpace(c.PostForm("subject"))
	if subject == "" {
		response.BadRequest(c, response.CodeValidation, "subject 必填")
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, response.CodeValidation, "请上传 .ics 文件")
		return
	}
	if fh.Size > service.ICSMaxFileSize {
		response.BadRequest(c, response.CodeValidation,
			fmt.Sprintf("文件不能超过 %d MB", service.ICSMaxFileSize/1024/1024))
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	// 没有 TZID 的浮动时间按服务器时区解释
	events, err := service.ParseICS(f, time.Local)
	if err != nil {
		handleContentError(c, err)
		return
	}
	n, err := h.contentSvc.Import(c.Request.Context(), caller, subject, events)
	if err != nil {
		handleContentError(c, err)
		return
	}
	response.Created(c, gin.H{"imported": n})
}

func handleContentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrContentNotFound):
		response.NotFound(c, response.CodeNotFound, err.Error())
	case errors.Is(err, service.ErrNoPermission):
		response.Forbidden(c, response.CodeForbidden, err.Error())
	case errors.Is(err, service.ErrICSInvalid), errors.Is(err, service.ErrICSNoEvents):
		response.BadRequest(c, response.CodeValidation, err.Error())
	default:
		respondError(c, err)
	}
}
