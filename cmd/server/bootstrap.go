package main

import (
	"context"
	"fmt"

	"github.com/huangang/teamdesk/internal/config"
	"github.com/huangang/teamdesk/internal/handlers"
	"github.com/huangang/teamdesk/internal/middleware"
	"github.com/huangang/teamdesk/internal/models"
	"github.com/huangang/teamdesk/internal/services"
	"github.com/huangang/teamdesk/internal/utils"
	"github.com/huangang/teamdesk/pkg/logger"
	"gorm.io/gorm"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	authService      *services.AuthService
	taskQueue        services.TaskQueue
	worker           *services.Worker
	logCleanup       *services.LogCleanupScheduler
	authLimiter      *middleware.RateLimiter
	authHandler      *handlers.AuthHandler
	userHandler      *handlers.UserHandler
	teamHandler      *handlers.TeamHandler
	systemLogHandler *handlers.SystemLogHandler
	healthHandler    *handlers.HealthHandler
	metricsHandler   *handlers.MetricsHandler
}

// newAppServices wires services and handlers on top of db. Only the auth
// rate limiter's cleanup goroutine is started; shutdown stops it.
func newAppServices(db *gorm.DB, cfg *config.Config) *appServices {
	userService := services.NewUserService(db)
	teamService := services.NewTeamService(db, userService)
	systemLogService := services.NewSystemLogService(db)

	processor := services.NewLastLoginProcessor(userService)
	taskQueue := services.NewTaskQueue(&cfg.Redis, processor)
	authService := services.NewAuthService(userService, &cfg.JWT, taskQueue)

	services.InitSystemLogger(db)

	return &appServices{
		authService:      authService,
		taskQueue:        taskQueue,
		worker:           services.NewWorker(&cfg.Redis, processor),
		logCleanup:       services.NewLogCleanupScheduler(systemLogService, cfg.Audit.RetentionDays),
		authLimiter:      middleware.NewRateLimiter(5, 10),
		authHandler:      handlers.NewAuthHandler(authService),
		userHandler:      handlers.NewUserHandler(userService),
		teamHandler:      handlers.NewTeamHandler(teamService),
		systemLogHandler: handlers.NewSystemLogHandler(systemLogService),
		healthHandler:    handlers.NewHealthHandler(db, taskQueue),
		metricsHandler:   handlers.NewMetricsHandler(db, taskQueue),
	}
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(ctx context.Context, cfg *config.Config) (*appServices, error) {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	db := models.GetDB()

	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	svc := newAppServices(db, cfg)

	if err := svc.authService.CreateAdminIfNotExists(ctx, &cfg.Admin); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	if err := svc.logCleanup.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start log cleanup scheduler")
	}

	if svc.worker != nil {
		if err := svc.worker.Start(); err != nil {
			logger.Warn().Err(err).Msg("Failed to start worker")
		}
	}

	return svc, nil
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.authLimiter.Stop()
	s.logCleanup.Stop()
	logger.Info().Msg("All schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close task queue")
		}
	}
}
