package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/yigalul/gym-appointment/api/swagger"
	"github.com/yigalul/gym-appointment/internal/app"
	"github.com/yigalul/gym-appointment/internal/handler"
	"github.com/yigalul/gym-appointment/internal/middleware"
	"github.com/yigalul/gym-appointment/internal/models"
	"github.com/yigalul/gym-appointment/pkg/config"
	"github.com/yigalul/gym-appointment/pkg/logger"
	corsmiddleware "github.com/yigalul/gym-appointment/pkg/middleware/cors"
	reqidmiddleware "github.com/yigalul/gym-appointment/pkg/middleware/requestid"
)

// @title Gym Appointment API
// @version 1.0.0
// @description Trainer availability, client bookings and the weekly auto-scheduler.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, logr)
	if err != nil {
		logr.Fatal("failed to build application", zap.Error(err))
	}
	a.Start(ctx)
	defer a.Close(10 * time.Second)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "timezone", a.Location.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func newRouter(a *app.App) *gin.Engine {
	cfg := a.Config
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.Logger))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(a.Metrics))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(a.Metrics, map[string]handler.Pinger{
		"database": a.PingDatabase,
		"redis":    a.PingRedis,
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(a.Auth)
	scheduleHandler := handler.NewAutoScheduleHandler(a.AutoSchedule)
	appointmentHandler := handler.NewAppointmentHandler(a.Appointments)
	trainerHandler := handler.NewTrainerHandler(a.Availability)
	clientHandler := handler.NewClientHandler(a.Preferences)
	notificationHandler := handler.NewNotificationHandler(a.Notifier)

	admin := string(models.RoleAdmin)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(a.Audit, a.Logger, action, resource)
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	secured := api.Group("", middleware.JWT(a.Auth))

	appointments := secured.Group("/appointments")
	appointments.GET("", appointmentHandler.List)
	appointments.POST("", audit(models.AuditActionBook, "appointment"), appointmentHandler.Book)
	appointments.PUT("/:id/cancel", audit(models.AuditActionCancel, "appointment"), appointmentHandler.Cancel)
	appointments.DELETE("/week/:week", middleware.RBAC(admin), audit(models.AuditActionClearWeek, "appointment"), appointmentHandler.ClearWeek)
	if cfg.Scheduler.Enabled {
		appointments.POST("/auto-schedule", middleware.RBAC(admin), audit(models.AuditActionAutoSchedule, "schedule"), scheduleHandler.Run)
		appointments.POST("/auto-resolve", middleware.RBAC(admin), audit(models.AuditActionAutoResolve, "schedule"), scheduleHandler.Resolve)
		appointments.GET("/auto-schedule/reports/:week", middleware.RBAC(admin), scheduleHandler.Report)
	}

	trainerRoles := middleware.RBAC(admin, string(models.RoleTrainer))
	secured.GET("/trainers", trainerHandler.List)
	secured.POST("/trainers/:id/availability", trainerRoles, audit(models.AuditActionAvailability, "availability"), trainerHandler.CreateAvailability)
	secured.DELETE("/availability/:id", trainerRoles, audit(models.AuditActionAvailability, "availability"), trainerHandler.DeleteAvailability)

	clientRoles := middleware.RBAC(admin, middleware.RoleSelf)
	secured.GET("/clients/:id/default-slots", clientRoles, clientHandler.DefaultSlots)
	secured.PUT("/clients/:id/default-slots", clientRoles, audit(models.AuditActionDefaultSlots, "client"), clientHandler.ReplaceDefaultSlots)

	secured.GET("/users/:id/notifications", notificationHandler.List)
	secured.PUT("/notifications/:id/read", notificationHandler.MarkRead)

	return r
}
