package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"edu-platform/internal/service"
)

// CalendarHandler 日历订阅
type CalendarHandler struct {
	calendarSvc service.CalendarService
}

// NewCalendarHandler 创建 CalendarHandler
func NewCalendarHandler(calendarSvc service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendarSvc: calendarSvc}
}

// Feed 讲座与考试的 iCalendar 订阅源
// GET /api/calendar.ics
func (h *CalendarHandler) Feed(c *gin.Context) {
	out, err := h.calendarSvc.Export(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="calendar.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(out))
}
