package model

import "time"

// Timestamps 通用时间字段；历史表中可能缺失，读取时按零值处理
type Timestamps struct {
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// 角色
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
	RoleParent  = "parent"
)

// ValidRole 是否为受支持的角色
func ValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleTeacher, RoleAdmin, RoleParent:
		return true
	}
	return false
}

// 账号所在的表
const (
	TableUsers    = "users"
	TableStudents = "students"
	TableTeachers = "teachers"
)
