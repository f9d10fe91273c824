package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-dashboard/internal/api/http"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/dashboard"
	"github.com/i474232898/weather-dashboard/internal/logging"
	"github.com/i474232898/weather-dashboard/internal/render"
	"github.com/i474232898/weather-dashboard/internal/scheduler"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	// Favorites and last-seen persistence.
	var kv store.KV = store.NewMemoryKV()
	if cfg.DBPath != "" {
		sqliteKV, err := store.NewSQLiteKV(cfg.DBPath, zlog)
		if err != nil {
			zlog.Fatal("failed to open database", zap.String("path", cfg.DBPath), zap.Error(err))
		}
		kv = sqliteKV
	}
	defer kv.Close()

	// Shared HTTP client and guards for outbound provider calls.
	httpCfg := providers.NewHTTPClientConfig(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.ProviderRPS, cfg.ProviderBurst)

	var geocoder dashboard.Geocoder = providers.NewOpenMeteoGeocoder(httpCfg, cfg.GeocodeURL)
	if cfg.GoogleGeocoderAPIKey != "" {
		zlog.Info("using google geocoder")
		geocoder = providers.NewGoogleGeocoder(cfg.GoogleGeocoderAPIKey)
	}

	board := render.NewBoard()
	orch := dashboard.New(dashboard.Deps{
		Geocoder:  geocoder,
		Forecasts: providers.NewOpenMeteoForecast(httpCfg, cfg.ForecastURL, cfg.AirQualityURL, zlog),
		Renderer:  board,
		Favorites: store.NewFavorites(kv, zlog),
		LastSeen:  store.NewLastSeenStore(kv),
		Logger:    zlog,
	}, cfg.DefaultUnits)

	// Restore the last view; a failure here only leaves the dashboard empty.
	restoreCtx, cancelRestore := context.WithTimeout(context.Background(), 30*time.Second)
	if err := orch.Restore(restoreCtx, cfg.DefaultPlace.Place()); err != nil {
		zlog.Warn("initial load failed", zap.Error(err))
	}
	cancelRestore()

	sched := scheduler.New(cfg.RefreshInterval, orch, zlog)
	if err := sched.Start(); err != nil {
		zlog.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-dashboard",
		})
	})

	httpapi.RegisterRoutes(app, orch, board)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			zlog.Error("fiber server stopped", zap.Error(err))
		}
	}()
	zlog.Info("listening", zap.String("port", cfg.Port))

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zlog.Error("error during shutdown", zap.Error(err))
	}
}
