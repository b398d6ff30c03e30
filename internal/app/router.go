package app

import (
	"quiz_master_backend/internal/config"
	"quiz_master_backend/internal/middleware"
	"quiz_master_backend/internal/model"
	"quiz_master_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 2. 需要登录的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/subjects", c.admin.ListSubjects)
		authGroup.GET("/quizzes", c.quiz.ListQuizzes)
		authGroup.GET("/quizzes/:id", c.quiz.GetQuiz)
		authGroup.POST("/quizzes/:id/submit", c.quiz.SubmitQuiz)
		authGroup.GET("/scores", c.quiz.ListScores)

		authGroup.GET("/user/stats", c.statistics.GetUserStatistics)
		authGroup.POST("/user/stats/jobs", a.jobLimiter.Middleware(), c.statistics.RequestUserStatistics)
		authGroup.GET("/stats/jobs/:id", c.statistics.GetJob)
	}

	// 3. 管理员相关接口
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/stats", c.statistics.GetPlatformStatistics)
		admin.POST("/subjects", c.admin.CreateSubject)
		admin.DELETE("/subjects/:id", c.admin.DeleteSubject)
		admin.POST("/quizzes", c.admin.CreateQuiz)
		admin.DELETE("/quizzes/:id", c.admin.DeleteQuiz)
	}
}
