package handler

import "edu-platform/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	Course     *CourseHandler
	Order      *OrderHandler
	Enrollment *EnrollmentHandler
	Content    *ContentHandler
	User       *UserHandler
	Export     *ExportHandler
	Calendar   *CalendarHandler
	Schema     *SchemaHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		Course:     NewCourseHandler(svc.Course),
		Order:      NewOrderHandler(svc.Order),
		Enrollment: NewEnrollmentHandler(svc.Enrollment),
		Content:    NewContentHandler(svc.Content),
		User:       NewUserHandler(svc.User),
		Export:     NewExportHandler(svc.Export),
		Calendar:   NewCalendarHandler(svc.Calendar),
		Schema:     NewSchemaHandler(svc.Schema),
	}
}
