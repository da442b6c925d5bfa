package errors

import (
	"errors"
	"fmt"
	"strings"
)

// 跨层通用错误
var (
	// ErrNotFound 引用的记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrConflict 唯一约束冲突
	ErrConflict = errors.New("unique constraint violation")
)

// StorageError 非预期的数据库错误（对外统一 500，日志保留完整上下文）
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage 包装数据库错误；nil 原样返回
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// HashingError 密码哈希或哈希回写失败
type HashingError struct {
	Err error
}

func (e *HashingError) Error() string {
	return fmt.Sprintf("hashing: %v", e.Err)
}

func (e *HashingError) Unwrap() error { return e.Err }

// ConstraintError 唯一约束冲突，Field 为冲突字段（如 email）
type ConstraintError struct {
	Field string
	Err   error
}

func (e *ConstraintError) Error() string {
	if e.Field == "" {
		return "constraint violation"
	}
	return fmt.Sprintf("constraint violation on %s", e.Field)
}

func (e *ConstraintError) Unwrap() error { return ErrConflict }

// IsUniqueViolation 判断驱动错误是否为唯一约束冲突
// SQLite: "UNIQUE constraint failed"; PostgreSQL: SQLSTATE 23505 / "duplicate key value"
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

// UniqueField 从唯一约束错误中提取冲突列名（尽力而为）
func UniqueField(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	// SQLite: UNIQUE constraint failed: users.email
	if i := strings.Index(msg, "UNIQUE constraint failed: "); i >= 0 {
		rest := msg[i+len("UNIQUE constraint failed: "):]
		if j := strings.IndexAny(rest, ", "); j >= 0 {
			rest = rest[:j]
		}
		if k := strings.LastIndex(rest, "."); k >= 0 {
			return rest[k+1:]
		}
		return rest
	}
	// PostgreSQL: Key (email)=(a@b.com) already exists.
	if i := strings.Index(msg, "Key ("); i >= 0 {
		rest := msg[i+len("Key ("):]
		if j := strings.Index(rest, ")"); j >= 0 {
			return rest[:j]
		}
	}
	return ""
}
