package model

import "time"

// ContentKind 教学内容类型，每种对应一张表
type ContentKind string

const (
	KindLecture    ContentKind = "lectures"
	KindAssignment ContentKind = "assignments"
	KindQuiz       ContentKind = "quizzes"
	KindExam       ContentKind = "exams"
)

// ParseContentKind 解析路由中的内容类型
func ParseContentKind(s string) (ContentKind, bool) {
	switch k := ContentKind(s); k {
	case KindLecture, KindAssignment, KindQuiz, KindExam:
		return k, true
	}
	return "", false
}

// Table 表名
func (k ContentKind) Table() string { return string(k) }

// DateColumn 该类型特有的日期列；测验没有
func (k ContentKind) DateColumn() string {
	switch k {
	case KindLecture:
		return "scheduled_at"
	case KindAssignment:
		return "due_date"
	case KindExam:
		return "exam_date"
	}
	return ""
}

// ContentItem 讲座 / 作业 / 测验 / 考试的统一模型
// Date 读取时由查询别名填充，写入走 DateColumn
type ContentItem struct {
	ID          int64       `gorm:"column:id;primaryKey"   json:"id"`
	Kind        ContentKind `gorm:"-"                      json:"kind"`
	TeacherID   int64       `gorm:"column:teacher_id"      json:"teacher_id"`
	Subject     string      `gorm:"column:subject"         json:"subject"`
	Title       string      `gorm:"column:title"           json:"title"`
	Description string      `gorm:"column:description"     json:"description"`
	Date        *time.Time  `gorm:"column:item_date;->"    json:"date,omitempty"`
	IsActive    bool        `gorm:"column:is_active"       json:"is_active"`
	Timestamps
}
