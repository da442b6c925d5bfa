package model

import "time"

// User 用户表 — 对应 users
// 口令列可能暂存历史明文，首次登录成功后升级为 bcrypt
type User struct {
	ID        int64  `gorm:"column:id;primaryKey"     json:"id"`
	Email     string `gorm:"column:email"             json:"email"`
	Password  string `gorm:"column:password"          json:"-"`
	FirstName string `gorm:"column:first_name"        json:"first_name"`
	LastName  string `gorm:"column:last_name"         json:"last_name"`
	Phone     string `gorm:"column:phone"             json:"phone"`
	Role      string `gorm:"column:role"              json:"role"`
	Username  string `gorm:"column:username"          json:"username,omitempty"`
	Points    int    `gorm:"column:points"            json:"points"`
	ParentID  *int64 `gorm:"column:parent_id"         json:"parent_id,omitempty"`
	StudentID *int64 `gorm:"column:student_id"        json:"student_id,omitempty"`
	IsActive  bool   `gorm:"column:is_active"         json:"is_active"`
	Timestamps
}

// TableName 指定表名
func (User) TableName() string { return TableUsers }

// Account 三张账号表（users / students / teachers）的统一视图
type Account struct {
	ID        int64
	Table     string
	Email     string
	Username  string
	FirstName string
	LastName  string
	FullName  string
	Phone     string
	Role      string
	Subject   string
	Points    int
	ParentID  *int64
	StudentID *int64
	IsActive  bool
	CreatedAt *time.Time
}

// DisplayName 展示用姓名
func (a *Account) DisplayName() string {
	if a.FullName != "" {
		return a.FullName
	}
	switch {
	case a.FirstName != "" && a.LastName != "":
		return a.FirstName + " " + a.LastName
	case a.FirstName != "":
		return a.FirstName
	case a.Username != "":
		return a.Username
	}
	return a.Email
}
