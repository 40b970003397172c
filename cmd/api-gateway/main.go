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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/RobertBecaria/ZION.2.0-sub002/api/swagger"
	"github.com/RobertBecaria/ZION.2.0-sub002/internal/handler"
	"github.com/RobertBecaria/ZION.2.0-sub002/internal/middleware"
	"github.com/RobertBecaria/ZION.2.0-sub002/internal/repository"
	"github.com/RobertBecaria/ZION.2.0-sub002/internal/service"
	"github.com/RobertBecaria/ZION.2.0-sub002/pkg/cache"
	"github.com/RobertBecaria/ZION.2.0-sub002/pkg/config"
	"github.com/RobertBecaria/ZION.2.0-sub002/pkg/database"
	"github.com/RobertBecaria/ZION.2.0-sub002/pkg/export"
	"github.com/RobertBecaria/ZION.2.0-sub002/pkg/jobs"
	"github.com/RobertBecaria/ZION.2.0-sub002/pkg/logger"
	corsmiddleware "github.com/RobertBecaria/ZION.2.0-sub002/pkg/middleware/cors"
	reqidmiddleware "github.com/RobertBecaria/ZION.2.0-sub002/pkg/middleware/requestid"
	"github.com/RobertBecaria/ZION.2.0-sub002/pkg/storage"
)

// @title Appointment Scheduling API
// @version 1.0.0
// @description Availability templates, slot discovery and booking lifecycle for service listings
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	loc, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		logr.Warn("unknown booking timezone, falling back to UTC", zap.String("timezone", cfg.Booking.Timezone))
		loc = time.UTC
	}

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	validate := validator.New()

	bookingRepo := repository.NewBookingRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	listingRepo := repository.NewListingRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Booking.SlotCacheTTL, logr, cfg.Booking.SlotCacheEnabled)
	authSvc := service.NewAuthService(cfg.JWT)
	slotSvc := service.NewSlotService(listingRepo, templateRepo, bookingRepo, cacheSvc, metricsSvc, logr, loc, cfg.Booking.DefaultAdvance)
	templateSvc := service.NewTemplateService(templateRepo, listingRepo, slotSvc, validate, logr)

	notifSvc := service.NewNotificationService(service.NewRedisPublisher(redisClient), cfg.Notifications.Channel, logr, cfg.Notifications.Enabled)
	if cfg.Notifications.Enabled {
		notifQueue := jobs.NewQueue("notifications", notifSvc.Deliver, jobs.QueueConfig{
			Workers:    cfg.Notifications.Workers,
			BufferSize: cfg.Notifications.BufferSize,
			MaxRetries: cfg.Notifications.MaxRetries,
			RetryDelay: cfg.Notifications.RetryDelay,
			Logger:     logr,
		})
		notifQueue.Start(ctx)
		defer notifQueue.Stop()
		notifSvc.AttachQueue(notifQueue)
	}

	bookingSvc := service.NewBookingService(bookingRepo, listingRepo, slotSvc, slotSvc, notifSvc, metricsSvc, validate, logr)

	var agendaExports *service.AgendaExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc := service.NewExportService(store, signer, service.ExportConfig{APIPrefix: cfg.APIPrefix}, logr, export.NewCSVExporter(), export.NewPDFExporter())
		exportRepo := repository.NewExportRepository(db)

		exportQueue := jobs.NewQueue("agenda-exports", func(ctx context.Context, job jobs.Job) error {
			return agendaExports.Process(ctx, job)
		}, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		agendaExports = service.NewAgendaExportService(exportRepo, bookingRepo, exportQueue, exportSvc, validate, logr)
		exportQueue.Start(ctx)
		defer exportQueue.Stop()
		agendaExports.RecoverPendingJobs(ctx)
	}

	slotHandler := handler.NewSlotHandler(slotSvc)
	templateHandler := handler.NewTemplateHandler(templateSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if metricsSvc != nil {
		r.Use(middleware.Metrics(metricsSvc))
	}

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/services/:id/slots", slotHandler.List)

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc))

	secured.GET("/services/:id/availability", middleware.RBAC("ADMIN", "PROVIDER"), templateHandler.Get)
	secured.PUT("/services/:id/availability", middleware.RBAC("ADMIN", "PROVIDER"), templateHandler.Set)

	secured.POST("/bookings", middleware.RBAC("ADMIN", "CLIENT"), bookingHandler.Reserve)
	secured.GET("/bookings/mine", middleware.RBAC("CLIENT"), bookingHandler.MyBookings)
	secured.GET("/bookings/:id", bookingHandler.Get)
	secured.PATCH("/bookings/:id/status", bookingHandler.Transition)
	secured.GET("/providers/:id/agenda", middleware.RBAC("ADMIN", "PROVIDER"), bookingHandler.Agenda)

	if agendaExports != nil {
		exportHandler := handler.NewExportHandler(agendaExports)
		secured.POST("/agenda/exports", middleware.RBAC("ADMIN", "PROVIDER"), exportHandler.Create)
		secured.GET("/agenda/exports/:id", middleware.RBAC("ADMIN", "PROVIDER"), exportHandler.Status)
		api.GET("/agenda/exports/download", exportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
