package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/amazon-product-scraper/internal/api"
	"github.com/maltedev/amazon-product-scraper/internal/browser"
	"github.com/maltedev/amazon-product-scraper/internal/config"
	"github.com/maltedev/amazon-product-scraper/internal/database"
	"github.com/maltedev/amazon-product-scraper/internal/events"
	"github.com/maltedev/amazon-product-scraper/internal/parser"
	"github.com/maltedev/amazon-product-scraper/internal/ratelimit"
	"github.com/maltedev/amazon-product-scraper/internal/scraper"
	"github.com/maltedev/amazon-product-scraper/internal/storage"
	"github.com/maltedev/amazon-product-scraper/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := scraper.NewMetrics()
	progress := scraper.NewProgress()

	if cfg.Server.Addr != "" {
		server := api.NewServer(cfg.Server.Addr,
			api.NewRouter(api.NewHandlers(progress, log), metrics.Registry), log)
		server.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error("server shutdown failed", "error", err)
			}
		}()
	}

	var sinks []scraper.ResultSink

	if cfg.Database.Enabled {
		db, err := database.New(ctx, database.Config{
			URL:         cfg.Database.URL,
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			Database:    cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			MaxConns:    cfg.Database.MaxConns,
			MaxConnLife: cfg.Database.MaxConnLife,
		})
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			return 1
		}
		defer db.Close()

		store := database.NewRunStore(db, log)
		if err := store.EnsureSchema(ctx); err != nil {
			log.Error("failed to prepare database", "error", err)
			return 1
		}
		sinks = append(sinks, store)
	}

	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("failed to connect to Redis", "error", err)
			return 1
		}
		sinks = append(sinks, events.NewPublisher(redisClient, cfg.Redis.Stream, log))
	}

	session, err := browser.Open(cfg.BrowserOptions())
	if err != nil {
		log.Error("failed to initialize browser", "error", err)
		return 1
	}

	runner := scraper.NewRunner(
		session,
		parser.NewAmazonParser(log),
		storage.NewResultWriter(cfg.Scraper.OutputDir),
		cfg.RunnerConfig(),
		log,
		scraper.WithSinks(sinks...),
		scraper.WithRateLimiter(ratelimit.NewAdaptiveRateLimiter(cfg.Scraper.ProductDelayMin, cfg.Scraper.ProductDelayMax)),
		scraper.WithMetrics(metrics),
		scraper.WithProgress(progress),
	)

	result, err := runner.Run(ctx)
	if err != nil {
		log.Error("scrape failed", "error", err)
		return 1
	}

	log.Info("done",
		"file", result.OutputFile,
		"products", len(result.Products),
		"failures", len(result.Failures))
	return 0
}
