package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"edu-platform/internal/dto"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoEnrollments = errors.New("暂无选课记录")
	ErrExportGenerateFail  = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置下载响应头
type ExportService interface {
	// ExportEnrollments 导出选课记录为 Excel，可按课程过滤
	ExportEnrollments(ctx context.Context, courseID int64) (*bytes.Buffer, string, error)
}

type exportService struct {
	enrollments EnrollmentService
	logger      *zap.Logger
	now         func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(enrollments EnrollmentService, logger *zap.Logger) ExportService {
	return &exportService{enrollments: enrollments, logger: logger, now: time.Now}
}

var enrollmentHeaders = []string{"记录ID", "学员ID", "学员邮箱", "学员姓名", "课程ID", "课程", "状态", "有效", "管理员开通", "到期时间", "创建时间"}

func (s *exportService) ExportEnrollments(ctx context.Context, courseID int64) (*bytes.Buffer, string, error) {
	list, err := s.enrollments.List(ctx, &dto.EnrollmentListRequest{CourseID: courseID})
	if err != nil {
		return nil, "", err
	}
	if len(list) == 0 {
		return nil, "", ErrExportNoEnrollments
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "选课记录"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 表头
	for i, h := range enrollmentHeaders {
		f.SetCellValue(sheetName, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(enrollmentHeaders)-1), 1), headerStyle)
	f.SetColWidth(sheetName, "A", "B", 10)
	f.SetColWidth(sheetName, "C", "D", 24)
	f.SetColWidth(sheetName, "F", "F", 28)
	f.SetColWidth(sheetName, "J", "K", 22)

	// 数据行
	for i, e := range list {
		row := i + 2
		values := []any{
			e.ID, e.StudentID, e.StudentEmail, e.StudentName,
			e.CourseID, e.CourseTitle, e.Status, yesNo(e.Active), yesNo(e.GrantedByAdmin),
			e.ExpiresAt, e.CreatedAt,
		}
		if err := f.SetSheetRow(sheetName, cell("A", row), &values); err != nil {
			s.logger.Error("写入 Excel 行失败", zap.Int("row", row), zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("选课记录_%s.xlsx", s.now().Format("20060102"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
