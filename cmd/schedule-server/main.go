package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/sis-schedule-scraper/internal/api"
	"github.com/maltedev/sis-schedule-scraper/internal/browser"
	"github.com/maltedev/sis-schedule-scraper/internal/config"
	"github.com/maltedev/sis-schedule-scraper/internal/database"
	"github.com/maltedev/sis-schedule-scraper/internal/events"
	"github.com/maltedev/sis-schedule-scraper/internal/jobs"
	"github.com/maltedev/sis-schedule-scraper/internal/loadwait"
	"github.com/maltedev/sis-schedule-scraper/internal/queue"
	"github.com/maltedev/sis-schedule-scraper/internal/ratelimit"
	"github.com/maltedev/sis-schedule-scraper/internal/schedule"
	"github.com/maltedev/sis-schedule-scraper/internal/sis"
	"github.com/maltedev/sis-schedule-scraper/pkg/logger"
)

func main() {
	configFile := flag.String("config", "", "Optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logger.NewWithFile(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.FileOptions())
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := serve(ctx, cancel, cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func serve(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *slog.Logger) error {
	loc, err := cfg.Output.Location()
	if err != nil {
		return err
	}

	// The server has no one to sign on by hand.
	creds, err := sis.LoadCredentials(cfg.SIS.CredentialsFile)
	if err != nil {
		return err
	}

	extractorOpts, err := cfg.SIS.ExtractorOptions(logger)
	if err != nil {
		return err
	}

	db, err := database.New(ctx, cfg.Database.Options())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	browserOpts := cfg.Browser.Options()
	browserOpts.Headless = true
	b, err := browser.New(browserOpts, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	outbox := database.NewOutboxRepository(db, cfg.Redis.Stream)
	relay := database.NewRelay(outbox, redisClient, logger, database.RelayConfig{
		PollInterval: cfg.Relay.PollInterval,
		BatchSize:    cfg.Relay.BatchSize,
	})
	go func() {
		if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("relay stopped with error", "error", err)
		}
	}()

	runner := sis.NewRunner(
		b,
		sis.RunnerConfig{
			Selectors:   cfg.SIS.Selectors,
			NavRetries:  cfg.Browser.NavRetries,
			Credentials: &creds,
		},
		loadwait.NewWaiter(cfg.SIS.PollInterval, logger),
		schedule.NewExtractor(extractorOpts...),
		ratelimit.NewAdaptiveRateLimiter(cfg.Scraper.WeekDelayMin, cfg.Scraper.WeekDelayMax),
		logger,
	)

	jobQueue := queue.NewInMemoryQueue(cfg.Queue.MaxSize)
	defer jobQueue.Close()

	publisher := events.NewPublisher(db, outbox, logger)
	jobManager := jobs.NewManager(database.NewJobRepository(db), jobQueue, runner, publisher, logger)
	go jobManager.StartWorker(ctx)

	handlers := api.NewHandlers(jobManager, loc, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handlers, relay, cfg.Server.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.WriteTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sigChan:
		case <-ctx.Done():
		}

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
