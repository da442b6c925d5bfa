package model

// Course 课程表 — 对应 courses
type Course struct {
	ID          int64   `gorm:"column:id;primaryKey" json:"id"`
	Title       string  `gorm:"column:title"         json:"title"`
	Description string  `gorm:"column:description"   json:"description"`
	Instructor  string  `gorm:"column:instructor"    json:"instructor"`
	Price       float64 `gorm:"column:price"         json:"price"`
	Level       string  `gorm:"column:level"         json:"level"`
	IsActive    bool    `gorm:"column:is_active"     json:"is_active"`
	Timestamps
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }
