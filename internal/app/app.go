// Package app assembles repositories and services from configuration. Both the
// HTTP gateway and gymctl build on it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yigalul/gym-appointment/internal/repository"
	"github.com/yigalul/gym-appointment/internal/service"
	"github.com/yigalul/gym-appointment/pkg/cache"
	"github.com/yigalul/gym-appointment/pkg/config"
	"github.com/yigalul/gym-appointment/pkg/database"
	"github.com/yigalul/gym-appointment/pkg/jobs"
	"github.com/yigalul/gym-appointment/pkg/notify"
)

const notificationQueueName = "notifications"

// App holds the wired services.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Location *time.Location

	DB    *sqlx.DB
	Redis *redis.Client

	Users        *repository.UserRepository
	Audit        *repository.AuditRepository
	Metrics      *service.MetricsService
	Cache        *service.CacheService
	Auth         *service.AuthService
	Notifier     *service.NotificationService
	AutoSchedule *service.AutoScheduleService
	Appointments *service.AppointmentService
	Availability *service.AvailabilityService
	Preferences  *service.ClientPreferenceService

	queue *jobs.Queue
}

// New connects to Postgres and, when reachable, Redis, then builds every service.
// A Redis outage only disables report caching.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load scheduler timezone %q: %w", cfg.Scheduler.Timezone, err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, Location: loc, DB: db}
	a.Metrics = service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logger.Warn("redis unavailable, report caching disabled", zap.Error(err))
	} else {
		a.Redis = client
		cacheRepo = repository.NewCacheRepository(client, logger)
	}
	a.Cache = service.NewCacheService(cacheRepo, a.Metrics, cfg.Scheduler.ReportTTL, logger, cacheRepo != nil)

	validate := validator.New()
	a.Users = repository.NewUserRepository(db)
	a.Audit = repository.NewAuditRepository(db)
	trainers := repository.NewTrainerRepository(db)
	windows := repository.NewAvailabilityRepository(db)
	appointments := repository.NewAppointmentRepository(db)
	notifications := repository.NewNotificationRepository(db)

	a.Auth = service.NewAuthService(a.Users, a.Audit, validate, logger, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	senders := []notify.Sender{
		notify.NewWhatsAppSender(cfg.Notifications, logger),
		notify.NewEmailSender(cfg.Notifications, logger),
	}
	a.Notifier = service.NewNotificationService(notifications, senders, a.Metrics, loc, logger)
	a.queue = jobs.NewQueue(notificationQueueName, a.Notifier.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.Retries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logger,
	})
	a.Notifier.UseQueue(a.queue)

	policy := service.BookingPolicyFromConfig(cfg.Scheduler)
	a.AutoSchedule = service.NewAutoScheduleService(a.Users, trainers, appointments, a.Cache, a.Notifier, a.Metrics, validate, logger,
		service.AutoScheduleConfig{Location: loc, Policy: policy, ReportTTL: cfg.Scheduler.ReportTTL})
	a.Appointments = service.NewAppointmentService(appointments, a.Users, trainers, a.Notifier, a.Cache, policy, loc, validate, logger)
	a.Availability = service.NewAvailabilityService(windows, trainers, cfg.Scheduler.MaxTrainersPerShift, validate, logger)
	a.Preferences = service.NewClientPreferenceService(a.Users, validate, logger)

	return a, nil
}

// Start launches the background notification workers.
func (a *App) Start(ctx context.Context) {
	a.queue.Start(ctx)
}

// PingDatabase reports whether Postgres answers.
func (a *App) PingDatabase(ctx context.Context) error {
	return a.DB.PingContext(ctx)
}

// PingRedis reports whether Redis answers. A disabled cache counts as healthy.
func (a *App) PingRedis(ctx context.Context) error {
	if a.Redis == nil {
		return nil
	}
	return a.Redis.Ping(ctx).Err()
}

// Close drains queued notifications and releases connections.
func (a *App) Close(timeout time.Duration) {
	a.queue.Stop(timeout)
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("close redis", zap.Error(err))
		}
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Warn("close postgres", zap.Error(err))
	}
}
