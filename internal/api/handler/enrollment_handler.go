package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"edu-platform/internal/dto"
	"edu-platform/internal/service"
	"edu-platform/pkg/response"
)

// EnrollmentHandler 选课模块 HTTP 处理器
type EnrollmentHandler struct {
	enrollmentSvc service.EnrollmentService
}

// NewEnrollmentHandler 创建 EnrollmentHandler
func NewEnrollmentHandler(enrollmentSvc service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollmentSvc: enrollmentSvc}
}

// Grant 管理员开通课程，已开通时不重复创建
// POST /api/admin/grant-access
func (h *EnrollmentHandler) Grant(c *gin.Context) {
	var req dto.GrantAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "student_id 与 course_id 必填")
		return
	}
	result, err := h.enrollmentSvc.Grant(c.Request.Context(), &req)
	if err != nil {
		handleEnrollmentError(c, err)
		return
	}
	if result.AlreadyEnrolled {
		response.OK(c, result)
		return
	}
	response.Created(c, result)
}

// Revoke 撤销课程权限
// POST /api/admin/revoke-access
func (h *EnrollmentHandler) Revoke(c *gin.Context) {
	var req dto.RevokeAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "student_id 与 course_id 必填")
		return
	}
	if err := h.enrollmentSvc.Revoke(c.Request.Context(), &req); err != nil {
		handleEnrollmentError(c, err)
		return
	}
	response.OKMessage(c, "已撤销课程权限")
}

// List 选课记录（管理员）
// GET /api/admin/enrollments?student_id=&course_id=
func (h *EnrollmentHandler) List(c *gin.Context) {
	var req dto.EnrollmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "参数校验失败")
		return
	}
	list, err := h.enrollmentSvc.List(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, list)
}

// MyCourses 当前学员已开通的课程
// GET /api/my-courses
func (h *EnrollmentHandler) MyCourses(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	list, err := h.enrollmentSvc.MyCourses(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, list)
}

func handleEnrollmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrStudentNotFound),
		errors.Is(err, service.ErrCourseNotFound),
		errors.Is(err, service.ErrEnrollmentNotFound):
		response.NotFound(c, response.CodeNotFound, err.Error())
	case errors.Is(err, service.ErrExpiryInPast):
		response.BadRequest(c, response.CodeValidation, err.Error())
	default:
		respondError(c, err)
	}
}
