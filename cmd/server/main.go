package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/water-reports/internal/config"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/database"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/logging"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/realtime"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/routes"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/services"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/storage"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/validation"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	stdout := logging.Setup(cfg.AppEnv)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(stdout, pgLogHandler)))

	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetentionDays, cleanupDone)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		}
	}

	// Object storage
	objects, err := storage.NewDisk(cfg.StorageDir, cfg.StorageBucket)
	if err != nil {
		slog.Error("object storage init failed", "dir", cfg.StorageDir, "error", err)
		os.Exit(1)
	}

	// Change feed. appCtx is cancelled on shutdown, ending the relays and
	// every open report stream.
	appCtx, cancelApp := context.WithCancel(context.Background())
	hub := realtime.NewHub()
	publisher, relays, err := setupChangeFeed(appCtx, cfg, database.DB, hub)
	if err != nil {
		slog.Error("change feed setup failed", "feed", cfg.ChangeFeed, "error", err)
		os.Exit(1)
	}
	bridge := realtime.NewBridge(hub, cfg.RealtimeDebounce)

	// Services
	reportStore := services.NewReportStore(
		services.NewGormReportRepository(database.DB),
		objects,
		storage.NewURLResolver(cfg.PublicBaseURL, cfg.StorageBucket),
		publisher,
	)
	authService := services.NewAuthService(cfg)
	if cfg.JWKSURL != "" {
		if err := authService.Keys().FetchJWKS(cfg.JWKSURL); err != nil {
			slog.Error("identity provider keys unavailable", "url", cfg.JWKSURL, "error", err)
			os.Exit(1)
		}
	}
	queryService := services.NewQueryService(reportStore)
	moderationService := services.NewModerationService(reportStore, authService)

	// Handlers
	h := routes.Handlers{
		Report:     handlers.NewReportHandler(validation.New(cfg.ImageVerifyContent), reportStore, queryService),
		Moderation: handlers.NewModerationHandler(moderationService, reportStore),
		Admin:      handlers.NewAdminHandler(queryService, reportStore),
		Auth:       handlers.NewAuthHandler(authService),
		Health:     handlers.NewHealthHandler(database.Ping),
		Events:     handlers.NewEventsHandler(appCtx, bridge, queryService, reportStore),
		Images:     handlers.NewImageHandler(objects),
	}

	// Fiber app; the body limit leaves room for a 5MB image plus form fields.
	app := fiber.New(fiber.Config{
		BodyLimit:    10 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		return c.Next()
	})

	routes.Setup(app, cfg, authService, h)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "change_feed", cfg.ChangeFeed)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	cancelApp()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	relays.Wait()

	authService.Keys().Close()
	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := database.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

// setupChangeFeed picks the publisher for CHANGE_FEED and starts the relay
// that feeds remote changes into the local hub. Relays stop when ctx ends.
func setupChangeFeed(ctx context.Context, cfg *config.Config, db *gorm.DB, hub *realtime.Hub) (realtime.Publisher, *sync.WaitGroup, error) {
	var wg sync.WaitGroup

	switch cfg.ChangeFeed {
	case "local", "":
		return hub, &wg, nil

	case "postgres":
		relay := realtime.NewPGRelay(cfg.URL(), cfg.RealtimeChannel, hub)
		wg.Add(1)
		go func() {
			defer wg.Done()
			relay.Run(ctx)
		}()
		return realtime.NewPGPublisher(db, cfg.RealtimeChannel), &wg, nil

	case "redis":
		client, err := realtime.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, nil, err
		}
		relay := realtime.NewRedisRelay(client, cfg.RealtimeChannel, hub)
		wg.Add(1)
		go func() {
			defer wg.Done()
			relay.Run(ctx)
			client.Close()
		}()
		return realtime.NewRedisPublisher(client, cfg.RealtimeChannel), &wg, nil

	default:
		return nil, nil, errors.New("CHANGE_FEED must be one of local, postgres, redis")
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "request_id", c.Locals("requestid"), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
