package dto

// CreateCourseRequest 创建课程
type CreateCourseRequest struct {
	Title       string  `json:"title"       binding:"required,max=200"`
	Description string  `json:"description"`
	Instructor  string  `json:"instructor"  binding:"max=100"`
	Price       float64 `json:"price"       binding:"min=0"`
	Level       string  `json:"level"       binding:"max=50"`
}

// UpdateCourseRequest 更新课程（字段均可选）
type UpdateCourseRequest struct {
	Title       *string  `json:"title"       binding:"omitempty,max=200"`
	Description *string  `json:"description"`
	Instructor  *string  `json:"instructor"  binding:"omitempty,max=100"`
	Price       *float64 `json:"price"       binding:"omitempty,min=0"`
	Level       *string  `json:"level"       binding:"omitempty,max=50"`
	IsActive    *bool    `json:"is_active"`
}

// CourseListRequest 课程列表过滤
type CourseListRequest struct {
	Level  string `form:"level"`
	Search string `form:"search"`
}
