package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	retryBase = 50 * time.Millisecond
	retryCap  = time.Second
)

// WithRetry 对瞬时存储错误做有界指数退避重试
// 非瞬时错误立即返回；maxRetries 为 0 时只执行一次
func WithRetry(ctx context.Context, maxRetries uint64, fn func(ctx context.Context) error) error {
	b := retry.NewExponential(retryBase)
	b = retry.WithCappedDuration(retryCap, b)
	b = retry.WithMaxRetries(maxRetries, b)

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// IsTransient 判断是否为可重试的瞬时错误
// SQLite 写锁竞争、连接失效、网络抖动
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"database is locked",
		"database table is locked",
		"sqlite_busy",
		"connection reset by peer",
		"broken pipe",
		"connection refused",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
