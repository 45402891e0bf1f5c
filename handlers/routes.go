package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the API under /api
func RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		// Daily log routes
		api.GET("/logs", ListLogs)
		api.POST("/logs", CreateLog)
		api.DELETE("/logs", ResetLogs)

		api.GET("/dashboard", GetDashboard)

		// AI routes
		api.GET("/insights", GetInsights)
		api.POST("/insights/refresh", RefreshInsights)
		api.GET("/prep", GetPrep)
		api.POST("/transcribe", Transcribe)

		// Voice coach routes
		api.GET("/coach/ws", CoachWebSocket)
		api.GET("/coach/sessions", ListCoachSessions)
		api.DELETE("/coach/sessions/:id", StopCoachSession)

		// Error log routes
		api.GET("/error-logs", GetErrorLogs)
		api.DELETE("/error-logs", ClearErrorLogs)

		// System shutdown routes
		api.POST("/shutdown/generate-code", GenerateShutdownCode)
		api.POST("/shutdown/verify", VerifyAndShutdown)

		// Health and metrics routes
		api.GET("/health", HealthCheck)
		api.GET("/metrics", GetMetrics)
		api.GET("/metrics/prometheus", GetPrometheusMetrics)
	}
}
