package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"edu-platform/internal/dto"
	"edu-platform/internal/service"
	"edu-platform/pkg/response"
)

// CourseHandler 课程目录 HTTP 处理器
type CourseHandler struct {
	courseSvc service.CourseService
}

// NewCourseHandler 创建 CourseHandler
func NewCourseHandler(courseSvc service.CourseService) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc}
}

// List 在售课程列表
// GET /api/courses?level=&search=
func (h *CourseHandler) List(c *gin.Context) {
	h.list(c, false)
}

// AdminList 全部课程（含已下架）
// GET /api/admin/courses
func (h *CourseHandler) AdminList(c *gin.Context) {
	h.list(c, true)
}

func (h *CourseHandler) list(c *gin.Context, includeInactive bool) {
	var req dto.CourseListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "参数校验失败")
		return
	}
	courses, err := h.courseSvc.List(c.Request.Context(), &req, includeInactive)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, courses)
}

// Get 课程详情
// GET /api/courses/:id
func (h *CourseHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	course, err := h.courseSvc.GetByID(c.Request.Context(), id, false)
	if err != nil {
		handleCourseError(c, err)
		return
	}
	response.OK(c, course)
}

// Create 新建课程
// POST /api/admin/courses
func (h *CourseHandler) Create(c *gin.Context) {
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "参数校验失败")
		return
	}
	course, err := h.courseSvc.Create(c.Request.Context(), &req)
	if err != nil {
		handleCourseError(c, err)
		return
	}
	response.Created(c, course)
}

// Update 修改课程
// PUT /api/admin/courses/:id
func (h *CourseHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "参数校验失败")
		return
	}
	course, err := h.courseSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		handleCourseError(c, err)
		return
	}
	response.OK(c, course)
}

// Delete 下架课程
// DELETE /api/admin/courses/:id
func (h *CourseHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.courseSvc.Delete(c.Request.Context(), id); err != nil {
		handleCourseError(c, err)
		return
	}
	response.OKMessage(c, "课程已下架")
}

func handleCourseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, response.CodeNotFound, err.Error())
	default:
		respondError(c, err)
	}
}
