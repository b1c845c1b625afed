package app

import (
	"training_tracker_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由
	a.registerPublicRoutes(router, c)

	// 2. 学生积分、统计、进步
	a.registerStudentRoutes(router, c)

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.GET("/leaderboard", c.stats.GetLeaderboard)
	}
}

func (a *App) registerStudentRoutes(router *gin.Engine, c *controllers) {
	users := router.Group("/api/users/:userId")
	{
		users.POST("/sessions/:sessionId/complete", c.xp.CompleteSession)
		users.POST("/sessions/:sessionId/testing-progress", c.progress.RecordTestingProgress)

		users.GET("/xp", c.xp.GetTotalXP)
		users.GET("/xp/summary", c.xp.GetSummary)
		users.GET("/level", c.xp.GetLevel)
		users.GET("/stats", c.stats.GetUserStat)
		users.GET("/progress", c.progress.ListProgress)
	}
}

// registerAdminRoutes 鉴权由上游网关负责
func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers) {
	admin := router.Group("/api/admin")
	{
		admin.POST("/users/:userId/stats/recompute", c.stats.RecomputeUserStat)
		admin.POST("/users/:userId/progress/recalculate", c.progress.RecalculateAll)
		admin.POST("/stats/recompute-all", c.stats.RecomputeAll)
	}
}
