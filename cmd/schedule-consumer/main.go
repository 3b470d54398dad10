package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/sis-schedule-scraper/internal/config"
	"github.com/maltedev/sis-schedule-scraper/internal/database"
	"github.com/maltedev/sis-schedule-scraper/internal/events"
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

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutting down...")
		cancel()
	}()

	if err := consume(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer error", "error", err)
		os.Exit(1)
	}
}

func consume(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	loc, err := cfg.Output.Location()
	if err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}
	logger.Info("Connected to Redis", "addr", cfg.Redis.Addr)

	db, err := database.New(ctx, cfg.Database.Options())
	if err != nil {
		return err
	}
	defer db.Close()

	publisher := events.NewPublisher(db, database.NewOutboxRepository(db, cfg.Redis.Stream), logger)
	writer := events.NewCalendarWriter(publisher, cfg.Consumer.CalendarDir, loc, logger)

	consumer := events.NewConsumer(rdb, writer, events.ConsumerConfig{
		Stream: cfg.Redis.Stream,
		Group:  cfg.Consumer.Group,
		Name:   cfg.Consumer.Name,
	}, logger)
	return consumer.Run(ctx)
}
