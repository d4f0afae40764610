package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/onurcolak/outreach-sequencer/environments"
	"github.com/onurcolak/outreach-sequencer/handlers"
	"github.com/onurcolak/outreach-sequencer/internal/middlewares"
	"github.com/onurcolak/outreach-sequencer/internal/repository"
	"github.com/onurcolak/outreach-sequencer/internal/scheduler"
	"github.com/onurcolak/outreach-sequencer/internal/service"
	"github.com/onurcolak/outreach-sequencer/pkg/database"
	"github.com/onurcolak/outreach-sequencer/pkg/logger"
	"github.com/onurcolak/outreach-sequencer/pkg/redis"
	"github.com/onurcolak/outreach-sequencer/pkg/validator"
	"github.com/onurcolak/outreach-sequencer/pkg/webhook"
	"github.com/onurcolak/outreach-sequencer/routes"

	_ "github.com/onurcolak/outreach-sequencer/docs" // swagger docs
)

// @title Outreach Sequencer API
// @version 1.0
// @description Multi-channel outreach sequence scheduling engine
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email onurcolak@outlook.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @schemes http https
func main() {
	// Load config
	cfg := environments.Load()

	logger.Init(cfg.Log.Level, cfg.Log.Format)

	// Hard-fail if required secrets are missing
	if cfg.Auth.ExecutorAPIKey == "" {
		logger.Fatalf("EXECUTOR_API_KEY is required but not set")
	}
	if cfg.Auth.AdminAPIKey == "" {
		logger.Fatalf("ADMIN_API_KEY is required but not set")
	}

	logger.Infof("Starting Outreach Sequencer...")

	// Init DB
	db, err := database.NewMySQLDB(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed data
	if os.Getenv("SEED_DATA") == "true" {
		if err := database.SeedTestData(db); err != nil {
			logger.Warnf("Failed to seed test data: %v", err)
		}
	}

	// Init valkey
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewRedisClient(cfg.Redis, cfg.Sequence.CompletionTTL)
		if err != nil {
			logger.Warnf("Valkey not available, completion cache disabled: %v", err)
			redisClient = nil
		}
	}

	// Initialize repositories
	campaignRepo := repository.NewCampaignRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	progressRepo := repository.NewProgressRepository(db, cfg.Sequence.PublishChunkSize)

	// Initialize services
	publisher := service.NewPublisher(progressRepo)
	campaignService := service.NewCampaignService(campaignRepo, templateRepo, progressRepo)

	taskService, err := newTaskService(progressRepo, redisClient, cfg.Sequence)
	if err != nil {
		logger.Fatalf("Invalid sequence configuration: %v", err)
	}

	throttleService, err := newThrottleService(db, redisClient, cfg.Throttle)
	if err != nil {
		logger.Fatalf("Invalid throttle configuration: %v", err)
	}

	// Initialize runner and alert clients
	runnerClient := webhook.NewRunnerClient(cfg.Runner)
	logger.Infof("Workflow runner configured: %s", runnerClient.GetURL())

	alertClient := webhook.NewAlertClient(10 * time.Second)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize dispatcher
	dispatcher := scheduler.NewDispatcher(
		taskService,
		throttleService,
		runnerClient,
		alertClient,
		cfg.Dispatcher,
		cfg.Alert,
	)

	// Initialize handlers
	var healthHandler *handlers.HealthHandler
	if redisClient != nil {
		healthHandler = handlers.NewHealthHandler(db, redisClient)
	} else {
		healthHandler = handlers.NewHealthHandler(db, nil)
	}
	taskHandler := handlers.NewTaskHandler(taskService)
	throttleHandler := handlers.NewThrottleHandler(throttleService)
	campaignHandler := handlers.NewCampaignHandler(publisher, campaignService)
	dispatcherHandler := handlers.NewDispatcherHandler(dispatcher, ctx)

	// Auto-start dispatcher
	if cfg.Dispatcher.AutoStart {
		logger.Infof("Auto-starting dispatcher...")
		if err := dispatcher.Start(ctx); err != nil {
			logger.Warnf("Failed to auto-start dispatcher: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			middlewares.APIKeyHeader,
		},
	}))

	// Setup routes
	routes.RegisterRoutes(e, healthHandler, taskHandler, throttleHandler, campaignHandler, dispatcherHandler, cfg)

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Infof("Server starting on http://localhost%s", addr)
		logger.Infof("Swagger docs available at http://localhost%s/swagger/index.html", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down gracefully...")

	// Cancel context to signal all goroutines to stop
	cancel()

	// Stop dispatcher first (with timeout)
	if dispatcher.IsRunning() {
		logger.Infof("Stopping dispatcher...")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()

		done := make(chan error, 1)
		go func() {
			done <- dispatcher.Stop()
		}()

		select {
		case err := <-done:
			if err != nil {
				logger.Errorf("Error stopping dispatcher: %v", err)
			} else {
				logger.Infof("Dispatcher stopped successfully")
			}
		case <-stopCtx.Done():
			logger.Warnf("Dispatcher stop timeout, forcing shutdown")
		}
	}

	// Shutdown HTTP server (with timeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Infof("Shutting down HTTP server...")
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	} else {
		logger.Infof("HTTP server stopped successfully")
	}

	// Close database connection
	logger.Infof("Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Errorf("Error closing database: %v", err)
	}

	// Close Valkey connection
	if redisClient != nil {
		logger.Infof("Closing Valkey connection...")
		if err := redisClient.Close(); err != nil {
			logger.Errorf("Error closing Valkey: %v", err)
		}
	}

	logger.Infof("Graceful shutdown completed")
}

// newTaskService passes the completion cache only when Valkey is up; a nil
// *redis.Client must not reach the service as a non-nil interface.
func newTaskService(
	store *repository.ProgressRepository,
	redisClient *redis.Client,
	cfg environments.SequenceConfig,
) (*service.TaskService, error) {
	if redisClient == nil {
		return service.NewTaskService(store, nil, cfg)
	}
	return service.NewTaskService(store, redisClient, cfg)
}

func newThrottleService(
	db *sqlx.DB,
	redisClient *redis.Client,
	cfg environments.ThrottleConfig,
) (*service.ThrottleService, error) {
	switch cfg.Backend {
	case "valkey", "redis":
		if redisClient == nil {
			logger.Fatalf("THROTTLE_BACKEND=%s requires a reachable Valkey", cfg.Backend)
		}
		logger.Infof("Throttle state kept in Valkey")
		return service.NewThrottleService(redisClient.NewThrottleStore(cfg.LockTTL), cfg)
	default:
		logger.Infof("Throttle state kept in MySQL")
		return service.NewThrottleService(repository.NewThrottleRepository(db), cfg)
	}
}
