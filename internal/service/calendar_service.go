package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"edu-platform/internal/model"
	"edu-platform/internal/repository"
)

// ── 日历模块 ──────────────────────────────────────────────
//
// 导出：讲座（scheduled_at）与考试（exam_date）生成 iCalendar 订阅源
// 导入：教师上传 .ics，每个带 SUMMARY 与 DTSTART 的 VEVENT 生成一条讲座
// ─────────────────────────────────────────────────────────────

var (
	ErrICSInvalid  = errors.New("ICS 格式解析失败")
	ErrICSNoEvents = errors.New("ICS 中没有可导入的事件")
)

const (
	// ICSMaxFileSize 上传文件大小上限
	ICSMaxFileSize = 5 * 1024 * 1024
	// 导出时回看的天数
	calendarLookback = 30 * 24 * time.Hour
	// 条目没有结束时间，统一按时长展示
	lectureDuration = time.Hour
	examDuration    = 2 * time.Hour
	calendarProdID  = "-//elearning//calendar//CN"
)

// ImportedEvent ICS 解析结果
type ImportedEvent struct {
	Summary     string
	Description string
	Start       time.Time
}

// ParseICS 解析 iCalendar 内容；缺少 SUMMARY 或 DTSTART 的事件跳过
func ParseICS(reader io.Reader, loc *time.Location) ([]ImportedEvent, error) {
	cal, err := ics.ParseCalendar(io.LimitReader(reader, ICSMaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrICSInvalid, err)
	}
	if loc == nil {
		loc = time.UTC
	}

	var events []ImportedEvent
	for _, evt := range cal.Events() {
		summary := evt.GetProperty(ics.ComponentPropertySummary)
		if summary == nil || strings.TrimSpace(summary.Value) == "" {
			continue
		}
		start, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
		if err != nil {
			continue
		}
		ev := ImportedEvent{Summary: strings.TrimSpace(summary.Value), Start: start}
		if desc := evt.GetProperty(ics.ComponentPropertyDescription); desc != nil {
			ev.Description = strings.TrimSpace(desc.Value)
		}
		events = append(events, ev)
	}
	if len(events) == 0 {
		return nil, ErrICSNoEvents
	}
	return events, nil
}

// parseICSDateTime 支持 UTC、浮动时间（按 TZID 或 loc）与全天日期
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", propName)
	}
	val := strings.TrimSpace(prop.Value)

	zone := loc
	for k, v := range prop.ICalParameters {
		if strings.EqualFold(k, "TZID") && len(v) > 0 {
			if tz, err := time.LoadLocation(v[0]); err == nil {
				zone = tz
			}
		}
	}

	if t, err := time.Parse("20060102T150405Z", val); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range []string{"20060102T150405", "20060102"} {
		if t, err := time.ParseInLocation(layout, val, zone); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}

// CalendarService 日历导出业务接口
type CalendarService interface {
	Export(ctx context.Context) (string, error)
}

type calendarService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(repo *repository.Repository, logger *zap.Logger) CalendarService {
	return &calendarService{repo: repo, logger: logger, now: time.Now}
}

func (s *calendarService) Export(ctx context.Context) (string, error) {
	now := s.now().UTC()
	from := now.Add(-calendarLookback)

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProdID)
	cal.SetXWRCalName("课程日历")

	for _, kind := range []model.ContentKind{model.KindLecture, model.KindExam} {
		items, err := s.repo.Content.ListDated(ctx, kind, from)
		if err != nil {
			s.logger.Error("查询日历条目失败", zap.String("kind", string(kind)), zap.Error(err))
			return "", err
		}
		for i := range items {
			addCalendarEvent(cal, &items[i], now)
		}
	}
	return cal.Serialize(), nil
}

func addCalendarEvent(cal *ics.Calendar, item *model.ContentItem, stamp time.Time) {
	if item.Date == nil {
		return
	}
	duration, prefix := lectureDuration, "讲座"
	if item.Kind == model.KindExam {
		duration, prefix = examDuration, "考试"
	}

	evt := cal.AddEvent(fmt.Sprintf("%s-%d@elearning", item.Kind, item.ID))
	evt.SetDtStampTime(stamp)
	evt.SetStartAt(*item.Date)
	evt.SetEndAt(item.Date.Add(duration))
	evt.SetSummary(fmt.Sprintf("[%s] %s", prefix, item.Title))
	if item.Description != "" {
		evt.SetDescription(item.Description)
	}
	if item.Subject != "" {
		evt.AddProperty(ics.ComponentPropertyCategories, item.Subject)
	}
}
