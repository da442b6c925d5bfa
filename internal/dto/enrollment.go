package dto

// GrantAccessRequest 管理员开通课程
type GrantAccessRequest struct {
	StudentID int64  `json:"student_id" binding:"required,min=1"`
	CourseID  int64  `json:"course_id"  binding:"required,min=1"`
	ExpiresAt string `json:"expires_at"` // RFC3339，可选
}

// RevokeAccessRequest 管理员撤销课程
type RevokeAccessRequest struct {
	StudentID int64 `json:"student_id" binding:"required,min=1"`
	CourseID  int64 `json:"course_id"  binding:"required,min=1"`
}

// GrantAccessResponse 开通结果
type GrantAccessResponse struct {
	EnrollmentID    int64 `json:"enrollment_id"`
	AlreadyEnrolled bool  `json:"already_enrolled"`
	Reactivated     bool  `json:"reactivated,omitempty"`
}

// EnrollmentListRequest 选课列表过滤
type EnrollmentListRequest struct {
	StudentID int64 `form:"student_id" binding:"omitempty,min=1"`
	CourseID  int64 `form:"course_id"  binding:"omitempty,min=1"`
}

// EnrollmentResponse 选课记录
type EnrollmentResponse struct {
	ID             int64  `json:"id"`
	StudentID      int64  `json:"student_id"`
	StudentEmail   string `json:"student_email,omitempty"`
	StudentName    string `json:"student_name,omitempty"`
	CourseID       int64  `json:"course_id"`
	CourseTitle    string `json:"course_title,omitempty"`
	Status         string `json:"status"`
	Active         bool   `json:"active"`
	GrantedByAdmin bool   `json:"granted_by_admin"`
	ExpiresAt      string `json:"expires_at,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// MyCourseResponse 学员已开通课程
type MyCourseResponse struct {
	CourseID    int64   `json:"course_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Instructor  string  `json:"instructor"`
	Level       string  `json:"level"`
	Price       float64 `json:"price"`
	ExpiresAt   string  `json:"expires_at,omitempty"`
}
