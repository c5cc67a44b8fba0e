package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/injectguard/injectguard/pkg/alert"
	"github.com/injectguard/injectguard/pkg/cache"
	"github.com/injectguard/injectguard/pkg/config"
	"github.com/injectguard/injectguard/pkg/detection"
	"github.com/injectguard/injectguard/pkg/domain/attempt"
	"github.com/injectguard/injectguard/pkg/guard"
	handlers "github.com/injectguard/injectguard/pkg/handlers/http"
	"github.com/injectguard/injectguard/pkg/infra/database"
	"github.com/injectguard/injectguard/pkg/infra/httpx"
	"github.com/injectguard/injectguard/pkg/infra/jwt"
	infraLogger "github.com/injectguard/injectguard/pkg/infra/logger"
	"github.com/injectguard/injectguard/pkg/infra/prometheus"
	"github.com/injectguard/injectguard/pkg/infra/repository"
	"github.com/injectguard/injectguard/pkg/middleware"
	"github.com/injectguard/injectguard/pkg/retention"
	"github.com/injectguard/injectguard/pkg/server"
	"github.com/joho/godotenv"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	logger := infraLogger.NewLogger("injectguard")

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config"
	}
	if err := config.Load(configPath); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.GetConfig()

	// Compile the detection catalog before touching any backend: a broken
	// rule must abort startup, not surface on the first request.
	customPatterns, err := detection.DecodeCustomPatterns(cfg.Detection.CustomPatterns)
	if err != nil {
		logger.Fatalf("Failed to decode custom detection patterns: %v", err)
	}
	catalog, err := detection.NewCatalog(customPatterns)
	if err != nil {
		logger.Fatalf("Failed to compile detection catalog: %v", err)
	}
	detector := detection.NewDetector(catalog, cfg.Detection.MaxScanBytes, cfg.Detection.MaxMatchedLength)
	logger.WithField("rules", catalog.Len()).Info("detection catalog compiled")

	// Initialize database
	db, err := database.NewDB(logger, &database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize cache
	cacheInstance, err := cache.NewCache(cache.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize cache: %v", err)
	}
	defer cacheInstance.Close()

	if cfg.Metrics.Enabled {
		prometheus.Initialize()
	}

	// repository
	attemptRepository := repository.NewAttemptRepository(db.DB)
	auditLogRepository := repository.NewAuditLogRepository(db.DB)

	// alert pipeline
	notifier := alert.NewNoopNotifier()
	if cfg.Alerts.WebhookURL != "" {
		notifier = alert.NewWebhookNotifier(
			&http.Client{Timeout: 10 * time.Second},
			logger,
			httpx.NewCircuitBreaker("alert-webhook", 30*time.Second, 5),
			alert.WebhookCredentials{
				URL:   cfg.Alerts.WebhookURL,
				Token: cfg.Alerts.WebhookToken,
			},
		)
	}
	alertService := alert.NewService(
		attemptRepository,
		auditLogRepository,
		cacheInstance,
		notifier,
		logger,
		cfg.Alerts.SuppressionWindow,
		attempt.Severity(cfg.Alerts.MinSeverity),
	)

	requestGuard := guard.New(detector, alertService, logger)

	// retention
	retentionManager := retention.NewManager(attemptRepository, auditLogRepository, logger, cfg.Retention)
	scheduler := retention.NewScheduler(retentionManager, logger, cfg.Retention.Interval)
	scheduler.Start(ctx)

	jwtManager := jwt.NewJwtManager(&cfg.Server)

	adminServer := server.NewAdminServer(server.AdminServerDI{
		MiddlewareTransport: middleware.Transport{
			AuthMiddleware:  middleware.NewAdminAuthMiddleware(logger, jwtManager),
			GuardMiddleware: middleware.NewGuardMiddleware(requestGuard),
		},
		HandlerTransport: handlers.HandlerTransport{
			ProcessAlertHandler:    handlers.NewProcessAlertHandler(logger, alertService),
			ListAttemptsHandler:    handlers.NewListAttemptsHandler(logger, attemptRepository),
			RetentionHandler:       handlers.NewRetentionHandler(logger, retentionManager, auditLogRepository),
			ExportAuditLogsHandler: handlers.NewExportAuditLogsHandler(logger, auditLogRepository),
		},
		Config: cfg,
		Logger: logger,
	})

	go func() {
		if err := adminServer.Run(); err != nil {
			logger.WithError(err).Fatal("Admin server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	scheduler.Stop()
	if err := adminServer.Shutdown(); err != nil {
		logger.WithError(err).Error("Failed to shut down admin server")
	}
	requestGuard.Drain()
}
