package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"edu-platform/internal/dto"
	"edu-platform/internal/service"
	"edu-platform/pkg/response"
)

// UserHandler 用户管理（管理员）
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// ListStudents 学员列表
// GET /api/admin/students?search=&page=&page_size=
func (h *UserHandler) ListStudents(c *gin.Context) {
	var req dto.StudentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "参数校验失败")
		return
	}
	users, total, err := h.userSvc.ListStudents(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, dto.PageResponse{
		List:     users,
		Total:    total,
		Page:     req.GetPage(),
		PageSize: req.GetPageSize(),
	})
}

// Update 修改用户资料 / 角色 / 状态
// PUT /api/admin/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.AdminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "参数校验失败")
		return
	}
	user, err := h.userSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		handleUserError(c, err)
		return
	}
	response.OK(c, user)
}

// DeleteStudent 删除学员及其选课记录
// DELETE /api/admin/students/:id
func (h *UserHandler) DeleteStudent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.userSvc.DeleteStudent(c.Request.Context(), id); err != nil {
		handleUserError(c, err)
		return
	}
	response.OKMessage(c, "学员已删除")
}

func handleUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, response.CodeNotFound, err.Error())
	case errors.Is(err, service.ErrUserSelfRoleChange), errors.Is(err, service.ErrUserSelfDisable):
		response.Forbidden(c, response.CodeForbidden, err.Error())
	case errors.Is(err, service.ErrNotStudent):
		response.BadRequest(c, response.CodeValidation, err.Error())
	case errors.Is(err, service.ErrEmailExists):
		response.BadRequest(c, response.CodeConflict, err.Error())
	default:
		respondError(c, err)
	}
}
