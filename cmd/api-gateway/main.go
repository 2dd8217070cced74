package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/noah-isme/casetrack-api/api/swagger"
	"github.com/noah-isme/casetrack-api/internal/handler"
	"github.com/noah-isme/casetrack-api/internal/models"
	"github.com/noah-isme/casetrack-api/internal/repository"
	"github.com/noah-isme/casetrack-api/internal/service"
	"github.com/noah-isme/casetrack-api/pkg/cache"
	"github.com/noah-isme/casetrack-api/pkg/config"
	"github.com/noah-isme/casetrack-api/pkg/database"
	"github.com/noah-isme/casetrack-api/pkg/jobs"
	"github.com/noah-isme/casetrack-api/pkg/logger"
	"github.com/noah-isme/casetrack-api/pkg/storage"
)

// @title Casetrack API
// @version 1.0.0
// @description Process lifecycle engine: status machine, audit timeline, document review, assignment and notifications.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const purgeInterval = time.Hour

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, unread counters will not be cached", zap.Error(err))
		redisClient = nil
	}

	files, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		return fmt.Errorf("init document storage: %w", err)
	}

	metrics := service.NewMetricsService()
	tx := database.NewTransactor(db)

	processRepo := repository.NewProcessRepository(db)
	clientRepo := repository.NewClientRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	timelineRepo := repository.NewTimelineRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	operatorRepo := repository.NewOperatorRepository(db)

	notifyCfg := service.NotificationServiceConfig{
		TTL:      cfg.Notifications.TTL,
		CacheTTL: cfg.Notifications.CacheTTL,
	}
	checks := map[string]handler.Pinger{"postgres": handler.PingFunc(db.PingContext)}

	var notifications *service.NotificationService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, "casetrack", metrics, logr)
		defer cacheRepo.Close() //nolint:errcheck
		notifications = service.NewNotificationService(notificationRepo, operatorRepo, cacheRepo, metrics, logr, notifyCfg)
		checks["redis"] = cacheRepo
	} else {
		notifications = service.NewNotificationService(notificationRepo, operatorRepo, nil, metrics, logr, notifyCfg)
	}

	var queue *jobs.Queue[models.NotificationInput]
	if cfg.Notifications.Async {
		queue = jobs.NewQueue[models.NotificationInput]("notifications", notifications.Deliver, jobs.QueueConfig{
			Workers:    cfg.Notifications.Workers,
			MaxRetries: 3,
			RetryDelay: time.Second,
			Logger:     logr,
		})
		queue.Start(ctx)
		notifications.UseDispatcher(queue)
	}

	timeline := service.NewTimelineService(timelineRepo, processRepo, metrics, logr, cfg.Timeline.ExportEnabled)
	processes := service.NewProcessService(tx, processRepo, clientRepo, companyRepo, timeline, notifications, metrics, logr)
	documents := service.NewDocumentService(tx, documentRepo, processRepo, files, timeline, notifications, logr, service.DocumentServiceConfig{
		MaxFileSize:  cfg.Documents.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Documents.AllowedMIMEs,
	})
	assignments := service.NewAssignmentService(tx, processRepo, operatorRepo, timeline, notifications, logr)
	bulk := service.NewBulkService(tx, processRepo, operatorRepo, timeline, notifications, metrics, logr)
	bot := service.NewBotService(tx, clientRepo, processes, logr)
	tokens := service.NewTokenService(cfg.JWT.Secret, "casetrack")

	router := newRouter(cfg, logr, routes{
		tokens:        tokens,
		botKeys:       service.NewBotKeyVerifier(cfg.Bot.APIKey, cfg.Bot.APIKeyHash),
		metrics:       metrics,
		health:        handler.NewMetricsHandler(metrics, checks),
		processes:     handler.NewProcessHandler(processes),
		documents:     handler.NewDocumentHandler(documents, cfg.Documents.MaxFileSizeBytes),
		assignments:   handler.NewAssignmentHandler(assignments, bulk),
		timeline:      handler.NewTimelineHandler(timeline),
		notifications: handler.NewNotificationHandler(notifications),
		bot:           handler.NewBotHandler(bot),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if _, err := notifications.PurgeExpired(gctx); err != nil {
					logr.Warn("notification purge failed", zap.Error(err))
				}
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logr.Info("shutting down")
		err := srv.Shutdown(shutdownCtx)
		if queue != nil {
			queue.Stop()
		}
		return err
	})
	return g.Wait()
}
