package model

import "time"

// 选课状态
const (
	EnrollmentActive  = "active"
	EnrollmentRevoked = "revoked"
)

// Enrollment 选课记录 — 对应 enrollments
// 学员列可能是 user_id 或 student_id，课程列可能是 course_id 或 product_id，统一由 repository 解析
type Enrollment struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	CourseID       int64      `json:"course_id"`
	Status         string     `json:"status"`
	IsActive       bool       `json:"is_active"`
	GrantedByAdmin bool       `json:"granted_by_admin"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

// Active 是否有效（未撤销、未过期）
func (e *Enrollment) Active(now time.Time) bool {
	if e.Status == EnrollmentRevoked || !e.IsActive {
		return false
	}
	return e.ExpiresAt == nil || e.ExpiresAt.After(now)
}
