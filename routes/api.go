package routes

import (
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/onurcolak/outreach-sequencer/environments"
	"github.com/onurcolak/outreach-sequencer/handlers"
	"github.com/onurcolak/outreach-sequencer/internal/middlewares"
)

// RegisterRoutes registers all API routes with middleware
func RegisterRoutes(
	e *echo.Echo,
	healthHandler *handlers.HealthHandler,
	taskHandler *handlers.TaskHandler,
	throttleHandler *handlers.ThrottleHandler,
	campaignHandler *handlers.CampaignHandler,
	dispatcherHandler *handlers.DispatcherHandler,
	cfg *environments.Config,
) {
	e.GET("/health", healthHandler.Health)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// API v1 base group
	v1 := e.Group("/api/v1")

	// Executor routes; the admin key works here too
	executorAuth := middlewares.APIKeyAuth(cfg.Auth.ExecutorAPIKey, cfg.Auth.AdminAPIKey)

	tasks := v1.Group("/tasks", executorAuth)

	tasks.GET("/ready", taskHandler.GetReadyTasks)
	tasks.POST("/claim", taskHandler.ClaimTasks)
	tasks.GET("/completed/cached", taskHandler.GetCachedCompletions)
	tasks.GET("/:id", taskHandler.GetTask)
	tasks.POST("/:id/claim", taskHandler.ClaimTask)
	tasks.POST("/:id/release", taskHandler.ReleaseTask)
	tasks.POST("/:id/complete", taskHandler.CompleteTask)

	throttle := v1.Group("/throttle", executorAuth)

	throttle.GET("/:sender", throttleHandler.GetState)
	throttle.POST("/:sender/reserve", throttleHandler.Reserve)

	// Admin routes
	adminAuth := middlewares.APIKeyAuth(cfg.Auth.AdminAPIKey)

	campaigns := v1.Group("/campaigns", adminAuth)

	campaigns.POST("/:id/publish", campaignHandler.Publish)
	campaigns.POST("/:id/pause", campaignHandler.Pause)
	campaigns.POST("/:id/resume", campaignHandler.Resume)
	campaigns.GET("/:id/sequence", campaignHandler.GetSequence)
	campaigns.PUT("/:id/sequence", campaignHandler.ReplaceSequence)
	campaigns.GET("/:id/progress/stats", campaignHandler.GetProgressStats)
	campaigns.GET("/:id/leads/:leadId/progress", campaignHandler.GetLeadTimeline)

	dispatcherGroup := v1.Group("/dispatcher", adminAuth)

	dispatcherGroup.POST("/start", dispatcherHandler.StartDispatcher)
	dispatcherGroup.POST("/stop", dispatcherHandler.StopDispatcher)
	dispatcherGroup.GET("/status", dispatcherHandler.GetDispatcherStatus)
}
