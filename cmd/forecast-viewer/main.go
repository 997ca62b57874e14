package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/forecast-viewer/internal/api/http"
	"github.com/i474232898/forecast-viewer/internal/config"
	"github.com/i474232898/forecast-viewer/internal/geocode"
	"github.com/i474232898/forecast-viewer/internal/nws"
	"github.com/i474232898/forecast-viewer/internal/pipeline"
	"github.com/i474232898/forecast-viewer/internal/scheduler"
	"github.com/i474232898/forecast-viewer/internal/viewer"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := newLogger(cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if !cfg.EnvFileLoaded {
		zl.Info("no .env file found; using process environment")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		zl.Fatal("failed to create data dir", zap.String("dir", cfg.DataDir), zap.Error(err))
	}

	// Weather service client with resilience (backoff + circuit breaker).
	client := nws.NewClient(nws.Options{
		BaseURL:    cfg.NWSBaseURL,
		UserAgent:  cfg.NWSUserAgent,
		Timeout:    cfg.HTTPTimeout,
		MaxRetries: cfg.NWSMaxRetries,
	}, zl.Named("nws"))

	geo, err := geocode.New(geocode.Options{
		Provider:     cfg.Geocoder,
		APIKey:       cfg.GeocoderAPIKey,
		NominatimURL: cfg.NominatimURL,
		Timeout:      cfg.HTTPTimeout,
	}, zl.Named("geocode"))
	if err != nil {
		zl.Fatal("failed to configure geocoder", zap.Error(err))
	}

	pipe := pipeline.New(client, pipeline.Config{
		DailyPath:  cfg.DailyPath(),
		HourlyPath: cfg.HourlyPath(),
	}, zl.Named("pipeline"))
	worker := pipeline.NewWorker(pipe, 0, zl.Named("worker"))

	view := viewer.New(geo, worker, cfg.DailyPath(), cfg.HourlyPath(), zl.Named("viewer"))

	// Scheduler that periodically refreshes the confirmed location.
	sched := scheduler.New(view, cfg.RefreshInterval, zl.Named("scheduler"))
	if err := sched.Start(); err != nil {
		zl.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "forecast-viewer",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          20 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "forecast-viewer",
			"geocoder": geo.Name(),
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, view)

	go func() {
		zl.Info("http server listening", zap.String("port", cfg.Port))
		if err := app.Listen(":" + cfg.Port); err != nil {
			zl.Warn("fiber server stopped", zap.Error(err))
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zl.Warn("error during shutdown", zap.Error(err))
	}
	if err := worker.Wait(shutdownCtx); err != nil {
		zl.Warn("forecast run still active at shutdown", zap.Error(err))
	}
}

func newLogger(format string) (*zap.Logger, error) {
	if format == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
