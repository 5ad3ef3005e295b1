package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/raceinsight/backend/internal/analytics"
	"github.com/raceinsight/backend/internal/api/handlers"
	"github.com/raceinsight/backend/internal/batch"
	rediscache "github.com/raceinsight/backend/internal/cache/redis"
	"github.com/raceinsight/backend/internal/metrics"
	"github.com/raceinsight/backend/internal/middleware/security"
	"github.com/raceinsight/backend/internal/scrape"
	"github.com/raceinsight/backend/internal/storage/sqlite"
	"github.com/raceinsight/backend/pkg/config"
	appLogger "github.com/raceinsight/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting race results ingestion service")

	metrics.Init()

	store, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer store.Close()

	if err := store.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var statsCache handlers.StatsCache
	if cfg.Redis.Enabled {
		cacheClient, err := rediscache.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSec)*time.Second,
		)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer cacheClient.Close()
		statsCache = cacheClient
	}

	renderer := scrape.NewHTTPRenderer(cfg.Scraper.UserAgent, appLogger.Log)
	defer renderer.Close()

	crawler := scrape.NewCrawler(renderer, scrape.CrawlerConfig{
		BaseURL:        cfg.Scraper.BaseURL,
		Racecourse:     cfg.Scraper.Racecourse,
		NavTimeout:     time.Duration(cfg.Scraper.NavTimeoutSec) * time.Second,
		MaxRacesPerDay: cfg.Scraper.MaxRacesPerDay,
	})

	engine := analytics.NewEngine()

	orchestrator := batch.NewOrchestrator(crawler, store, engine, batch.Config{
		MaxConcurrent: cfg.Batch.MaxConcurrent,
		MaxRetries:    cfg.Batch.MaxRetries,
		RetryDelay:    time.Duration(cfg.Batch.RetryDelayMS) * time.Millisecond,
		PoliteDelay:   time.Duration(cfg.Batch.PoliteDelaySec) * time.Second,
		WindowDays:    cfg.Batch.WindowDays,
	})

	// Cancelled on SIGINT/SIGTERM; every in-flight per-date pipeline
	// observes it.
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(security.HeadersMiddleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	statsHandler := handlers.NewStatsHandler(store, engine, statsCache)
	ingestHandler := handlers.NewIngestHandler(orchestrator, runCtx)

	api := app.Group("/api/v1")

	api.Get("/stats/jockeys", statsHandler.GetJockeyStats)
	api.Get("/stats/yearly", statsHandler.GetYearlyStats)
	api.Post("/ingest", ingestHandler.StartIngest)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down gracefully...")
	cancelRun()
	app.Shutdown()
	appLogger.Info("Server stopped")
}
