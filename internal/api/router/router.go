package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coursehub/config"
	"coursehub/internal/api/handler"
	"coursehub/internal/api/middleware"
	"coursehub/internal/model"
	"coursehub/internal/service"
	"coursehub/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 可为 nil，此时登录限流降级放行
func Setup(cfg *config.Config, h *handler.Handler, identity service.IdentityService, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes, cfg.Storage.MaxUpload))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── 缩略图（公开读取） ──
	r.GET("/blobs/*key", h.Blob.Get)

	admin := middleware.RoleAuth(model.RoleAdmin)
	student := middleware.RoleAuth(model.RoleStudent)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", middleware.RateLimit(rdb, cfg.Auth.LoginRateLimit, cfg.Auth.LoginWindow), h.Auth.Login)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.Auth(identity))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 知识领域
			areas := authorized.Group("/knowledge-areas")
			{
				areas.GET("", h.Catalog.ListKnowledgeAreas)
				areas.POST("", admin, h.Catalog.CreateKnowledgeArea)
				areas.PATCH("/:id", admin, h.Catalog.UpdateKnowledgeArea)
			}

			// 校区
			campuses := authorized.Group("/campuses")
			{
				campuses.GET("", h.Catalog.ListCampuses)
				campuses.POST("", admin, h.Catalog.CreateCampus)
				campuses.PATCH("/:id", admin, h.Catalog.UpdateCampus)
			}

			// 课程与课时
			courses := authorized.Group("/courses")
			{
				courses.GET("", h.Catalog.ListCourses)
				courses.POST("", admin, h.Catalog.CreateCourse)
				courses.GET("/:id", h.Catalog.GetCourse)
				courses.PATCH("/:id", admin, h.Catalog.UpdateCourse)
				courses.PUT("/:id/thumbnail", admin, h.Catalog.UploadThumbnail)
				courses.GET("/:id/lessons", h.Catalog.ListLessons)
				courses.POST("/:id/lessons", admin, h.Catalog.CreateLesson)
				courses.PATCH("/:id/lessons/reorder", admin, h.Catalog.ReorderLessons)
				courses.GET("/:id/enrollments", admin, h.Enrollment.ListCourseEnrollments)
				courses.GET("/:id/enrollments/export", admin, h.Export.ExportCourseProgress)
			}

			// 选课与进度（本人或管理员，Service 层鉴权）
			enrollments := authorized.Group("/enrollments")
			{
				enrollments.POST("", student, h.Enrollment.Enroll)
				enrollments.GET("/my-courses", h.Enrollment.MyCourses)
				enrollments.GET("/:id", h.Enrollment.GetEnrollment)
				enrollments.POST("/:id/lessons/:lessonId/progress", h.Enrollment.MarkProgress)
				enrollments.POST("/:id/certificate-requests", h.Certificate.Request)
			}

			// 证书申请
			certificates := authorized.Group("/certificate-requests")
			{
				certificates.GET("", h.Certificate.List)
				certificates.GET("/:id", h.Certificate.Get)
				certificates.PATCH("/:id", admin, h.Certificate.Decide)
			}
		}
	}

	return r
}
