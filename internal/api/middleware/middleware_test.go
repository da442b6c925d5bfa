package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"edu-platform/config"
	"edu-platform/pkg/jwt"
	"edu-platform/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret: "middleware-test-secret-2026",
		TokenTTL:  time.Hour,
	})
}

func protectedRouter(mgr *jwt.Manager, roles ...string) *gin.Engine {
	r := gin.New()
	handlers := []gin.HandlerFunc{JWTAuth(mgr, nil, zap.NewNop())}
	if len(roles) > 0 {
		handlers = append(handlers, RoleAuth(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, "%d", c.GetInt64(ContextUserID))
	})
	r.GET("/protected", handlers...)
	return r
}

func doGet(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	w := doGet(protectedRouter(newTestJWT()), "/protected", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("期望 401，实际: %d", w.Code)
	}
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	w := doGet(protectedRouter(newTestJWT()), "/protected", "Bearer not-a-token")
	if w.Code != http.StatusForbidden {
		t.Errorf("期望 403，实际: %d", w.Code)
	}
}

func TestJWTAuth_MalformedHeader(t *testing.T) {
	w := doGet(protectedRouter(newTestJWT()), "/protected", "Token abc")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("期望 401，实际: %d", w.Code)
	}
}

func TestJWTAuth_ValidToken(t *testing.T) {
	mgr := newTestJWT()
	token, err := mgr.GenerateToken(jwt.Subject{UserID: 42, Role: "student", Table: "users"})
	if err != nil {
		t.Fatalf("GenerateToken 失败: %v", err)
	}

	w := doGet(protectedRouter(mgr), "/protected", "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际: %d", w.Code)
	}
	if w.Body.String() != "42" {
		t.Errorf("期望 user_id=42，实际: %s", w.Body.String())
	}
}

func TestRoleAuth(t *testing.T) {
	mgr := newTestJWT()
	student, _ := mgr.GenerateToken(jwt.Subject{UserID: 1, Role: "student"})
	admin, _ := mgr.GenerateToken(jwt.Subject{UserID: 2, Role: "admin"})
	r := protectedRouter(mgr, "admin")

	if w := doGet(r, "/protected", "Bearer "+student); w.Code != http.StatusForbidden {
		t.Errorf("学员访问管理接口应返回 403，实际: %d", w.Code)
	}
	if w := doGet(r, "/protected", "Bearer "+admin); w.Code != http.StatusOK {
		t.Errorf("管理员应可访问，实际: %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000/"}))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("预检请求期望 204，实际: %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("允许的来源应被回显，实际: %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("未允许的来源不应回显，实际: %q", got)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != "abc-123" || w.Header().Get("X-Request-ID") != "abc-123" {
		t.Errorf("应沿用传入的 Request-ID，实际: %q", w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 100))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if len(w.Body.String()) != 36 {
		t.Errorf("过长的 Request-ID 应被替换为 UUID，实际: %q", w.Body.String())
	}
}

func TestRateLimit_NilRedisPasses(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(nil, 1, time.Minute))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for i := 0; i < 3; i++ {
		if w := doGet(r, "/ping", ""); w.Code != http.StatusOK {
			t.Fatalf("未启用 Redis 时应放行，第 %d 次: %d", i+1, w.Code)
		}
	}
}

func TestMetrics_RouteTemplate(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/api/courses/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", "/api/courses/:id", "200"))
	doGet(r, "/api/courses/1", "")
	doGet(r, "/api/courses/2", "")
	after := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", "/api/courses/:id", "200"))
	if after-before != 2 {
		t.Errorf("期望按路由模板累计 2 次，实际: %v", after-before)
	}

	unmatched := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", "unmatched", "404"))
	doGet(r, "/nope", "")
	if got := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", "unmatched", "404")); got-unmatched != 1 {
		t.Errorf("未匹配路由应归为 unmatched，实际增量: %v", got-unmatched)
	}
}

func TestBodyLimit_RouteOverride(t *testing.T) {
	readBody := func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusOK)
	}
	r := gin.New()
	r.Use(BodyLimit(1024, RouteLimit{Path: "/upload/:kind", MaxBytes: 8 * 1024}))
	r.POST("/small", readBody)
	r.POST("/upload/:kind", readBody)

	post := func(path string, size int) int {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(strings.Repeat("x", size)))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := post("/small", 2048); code != http.StatusRequestEntityTooLarge {
		t.Errorf("默认上限外期望 413，实际: %d", code)
	}
	if code := post("/upload/ics", 2048); code != http.StatusOK {
		t.Errorf("放宽的路由期望 200，实际: %d", code)
	}
	if code := post("/upload/ics", 16*1024); code != http.StatusRequestEntityTooLarge {
		t.Errorf("超过路由上限期望 413，实际: %d", code)
	}
}
