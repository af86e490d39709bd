package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/tutorlane/scheduling-api/api/swagger"
	"github.com/tutorlane/scheduling-api/internal/handler"
	"github.com/tutorlane/scheduling-api/internal/middleware"
	"github.com/tutorlane/scheduling-api/internal/repository"
	"github.com/tutorlane/scheduling-api/internal/service"
	"github.com/tutorlane/scheduling-api/pkg/cache"
	"github.com/tutorlane/scheduling-api/pkg/config"
	"github.com/tutorlane/scheduling-api/pkg/database"
	"github.com/tutorlane/scheduling-api/pkg/export"
	"github.com/tutorlane/scheduling-api/pkg/logger"
	corsmiddleware "github.com/tutorlane/scheduling-api/pkg/middleware/cors"
	reqidmiddleware "github.com/tutorlane/scheduling-api/pkg/middleware/requestid"
	"github.com/tutorlane/scheduling-api/pkg/tz"
)

// @title Tutorlane Scheduling API
// @version 1.0.0
// @description Availability, booking and recurring lesson scheduling service
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

	norm, err := tz.New(cfg.Scheduling.Timezone)
	if err != nil {
		logr.Sugar().Fatalw("failed to load timezone", "timezone", cfg.Scheduling.Timezone, "error", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	metrics := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)

	tutorRepo := repository.NewTutorRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	ruleRepo := repository.NewAvailabilityRuleRepository(db)
	timeOffRepo := repository.NewTimeOffRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	groupRepo := repository.NewRecurringGroupRepository(db)

	checker := service.NewConflictChecker(lessonRepo, timeOffRepo)
	expander := service.NewSlotExpander(norm, cfg.Scheduling.SlotLength, logr)

	availabilitySvc := service.NewAvailabilityService(tutorRepo, ruleRepo, checker, expander,
		norm, cacheSvc, metrics, logr,
		cfg.Scheduling.DisplayOffset, cfg.Scheduling.FanOutConcurrency, cfg.Scheduling.CheckTimeout)
	rankerSvc := service.NewTutorRankerService(tutorRepo, ruleRepo, checker, norm, metrics, logr,
		cfg.Scheduling.SlotLength, cfg.Scheduling.DisplayOffset,
		cfg.Scheduling.FanOutConcurrency, cfg.Scheduling.CheckTimeout)
	bookingSvc := service.NewBookingService(lessonRepo, norm, cacheSvc, metrics, nil, logr,
		cfg.Scheduling.SlotLength, cfg.Scheduling.DisplayOffset)
	recurringSvc := service.NewRecurringService(lessonRepo, groupRepo, metrics, logr, cfg.Recurring.Window)
	tutorSvc := service.NewTutorService(tutorRepo, ruleRepo, nil, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, logr)
	exportSvc := service.NewExportService(tutorRepo, lessonRepo, norm,
		export.NewCSVExporter(), export.NewPDFExporter(), logr)

	scheduler := service.NewExtensionScheduler(recurringSvc, groupRepo,
		cfg.Recurring.ExtensionInterval, cfg.Recurring.Workers, cfg.Recurring.Retries, logr)

	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc, rankerSvc)
	lessonHandler := handler.NewLessonHandler(bookingSvc, recurringSvc)
	tutorHandler := handler.NewTutorHandler(tutorSvc, exportSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/availability/slots", availabilityHandler.Slots)
		api.GET("/availability/tutors", availabilityHandler.Tutors)

		api.POST("/lessons", lessonHandler.Book)
		api.POST("/lessons/:id/cancel", lessonHandler.Cancel)
		api.POST("/lessons/:id/recurring", lessonHandler.CreateRecurring)
		api.POST("/recurring/extend", lessonHandler.ExtendRecurring)

		api.GET("/tutors", tutorHandler.List)
		api.GET("/tutors/:id", tutorHandler.Get)
		api.GET("/tutors/:id/rules", tutorHandler.ListRules)
		api.POST("/tutors/:id/rules", tutorHandler.CreateRule)
		api.DELETE("/tutors/:id/rules/:ruleId", tutorHandler.DeleteRule)
		if cfg.Export.Enabled {
			api.GET("/tutors/:id/schedule/export", tutorHandler.ExportSchedule)
		}

		api.GET("/subjects", subjectHandler.List)
		api.GET("/subjects/:id", subjectHandler.Get)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
