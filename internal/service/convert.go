package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"edu-platform/internal/dto"
	"edu-platform/internal/model"
)

const timeLayout = "2006-01-02T15:04:05Z"

var ErrInvalidTime = errors.New("时间格式错误，应为 RFC3339 或 YYYY-MM-DD")

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// parseOptionalTime 空串返回 nil
func parseOptionalTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidTime, s)
}

func toUserResponse(a *model.Account) dto.UserResponse {
	return dto.UserResponse{
		ID:        a.ID,
		Email:     a.Email,
		Username:  a.Username,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		FullName:  a.FullName,
		Name:      a.DisplayName(),
		Phone:     a.Phone,
		Role:      a.Role,
		Subject:   a.Subject,
		Points:    a.Points,
		ParentID:  a.ParentID,
		StudentID: a.StudentID,
		Source:    a.Table,
		CreatedAt: formatTime(a.CreatedAt),
	}
}

// accountFromUser users 表记录转为统一视图
func accountFromUser(u *model.User) *model.Account {
	created := u.CreatedAt
	return &model.Account{
		ID:        u.ID,
		Table:     model.TableUsers,
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Role:      u.Role,
		Points:    u.Points,
		ParentID:  u.ParentID,
		StudentID: u.StudentID,
		IsActive:  u.IsActive,
		CreatedAt: &created,
	}
}

// splitName "张 三" → ("张", "三")
func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i], strings.TrimSpace(full[i+1:])
	}
	return full, ""
}
