package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"edu-platform/config"
	"edu-platform/internal/api/handler"
	"edu-platform/internal/api/middleware"
	"edu-platform/internal/model"
	"edu-platform/pkg/jwt"
	"edu-platform/pkg/redis"
)

// contentKinds 共用一组 CRUD 路由的内容类型
var contentKinds = []model.ContentKind{
	model.KindLecture, model.KindAssignment, model.KindQuiz, model.KindExam,
}

// lectureImportPath ICS 上传接口，请求体上限单独放宽
const lectureImportPath = "/api/lectures/import"

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时跳过 Token 黑名单与登录限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes,
		middleware.RouteLimit{Path: lectureImportPath, MaxBytes: handler.ImportBodyLimit},
	))

	// ── 健康检查 / 指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRequired := middleware.JWTAuth(jwtMgr, rdb, logger)
	loginLimit := middleware.RateLimit(rdb, cfg.Auth.LoginRateLimit, time.Minute)

	api := r.Group("/api")
	{
		// 认证模块（无需认证）
		api.POST("/login", loginLimit, h.Auth.Login)
		api.POST("/register", loginLimit, h.Auth.Register)
		api.POST("/forgot-password", loginLimit, h.Auth.ForgotPassword)
		api.POST("/verify-reset-code", loginLimit, h.Auth.VerifyResetCode)
		api.POST("/reset-password", loginLimit, h.Auth.ResetPassword)

		// 课程目录与日历订阅（公开）
		api.GET("/courses", h.Course.List)
		api.GET("/courses/:id", h.Course.Get)
		api.GET("/calendar.ics", h.Calendar.Feed)

		// 教学内容：读取公开，写入限教师与管理员
		for _, kind := range contentKinds {
			g := api.Group("/" + string(kind))
			g.GET("", h.Content.List(kind))
			g.GET("/:id", h.Content.Get(kind))

			w := g.Group("", authRequired, middleware.RoleAuth(model.RoleTeacher, model.RoleAdmin))
			w.POST("", h.Content.Create(kind))
			w.PUT("/:id", h.Content.Update(kind))
			w.DELETE("/:id", h.Content.Delete(kind))
		}
		r.POST(lectureImportPath, authRequired,
			middleware.RoleAuth(model.RoleTeacher, model.RoleAdmin), h.Content.ImportLectures)

		// 需要认证的路由
		authorized := api.Group("", authRequired)
		{
			authorized.POST("/logout", h.Auth.Logout)
			authorized.GET("/me", h.Auth.Me)
			authorized.PUT("/profile", h.Auth.UpdateProfile)

			authorized.POST("/orders", h.Order.Create)
			authorized.GET("/orders/my", h.Order.ListMine)
			authorized.GET("/my-courses", h.Enrollment.MyCourses)
		}

		// 管理员
		admin := api.Group("/admin", authRequired, middleware.RoleAuth(model.RoleAdmin))
		{
			admin.GET("/courses", h.Course.AdminList)
			admin.POST("/courses", h.Course.Create)
			admin.PUT("/courses/:id", h.Course.Update)
			admin.DELETE("/courses/:id", h.Course.Delete)

			admin.GET("/orders", h.Order.List)
			admin.POST("/approve-order", h.Order.Approve)
			admin.POST("/reject-order", h.Order.Reject)

			admin.POST("/grant-access", h.Enrollment.Grant)
			admin.POST("/revoke-access", h.Enrollment.Revoke)
			admin.GET("/enrollments", h.Enrollment.List)

			admin.GET("/students", h.User.ListStudents)
			admin.DELETE("/students/:id", h.User.DeleteStudent)
			admin.PUT("/users/:id", h.User.Update)

			admin.GET("/export/enrollments", h.Export.ExportEnrollments)

			admin.GET("/schema", h.Schema.Status)
			admin.POST("/schema/reconcile", h.Schema.Reconcile)
		}
	}

	return r
}
