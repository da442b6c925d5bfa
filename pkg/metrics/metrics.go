package metrics

import (
	"database/sql"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "elearning"

var (
	// HTTPRequests 按路由、方法、状态码统计请求数
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	// HTTPDuration 请求耗时
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// SchemaSteps 启动校正步骤结果
	SchemaSteps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "schema",
		Name:      "reconcile_steps_total",
		Help:      "Schema reconciliation steps by status",
	}, []string{"status"})

	// LoginAttempts 登录结果
	LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "login_attempts_total",
		Help:      "Login attempts by outcome",
	}, []string{"outcome"})

	// PasswordUpgrades 明文口令升级为 bcrypt 的次数
	PasswordUpgrades = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "password_upgrades_total",
		Help:      "Plaintext credentials re-hashed after login, by outcome",
	}, []string{"outcome"})
)

var registerOnce sync.Once

// Register 向默认注册表注册全部指标，可重复调用
func Register(db *sql.DB) {
	registerOnce.Do(func() {
		prometheus.MustRegister(HTTPRequests, HTTPDuration, SchemaSteps, LoginAttempts, PasswordUpgrades)
		if db != nil {
			prometheus.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "connections_open",
				Help:      "Open database connections",
			}, func() float64 {
				return float64(db.Stats().OpenConnections)
			}))
			prometheus.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "connections_in_use",
				Help:      "Database connections currently in use",
			}, func() float64 {
				return float64(db.Stats().InUse)
			}))
		}
	})
}
