package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/maltedev/sis-schedule-scraper/internal/browser"
	"github.com/maltedev/sis-schedule-scraper/internal/config"
	"github.com/maltedev/sis-schedule-scraper/internal/database"
	"github.com/maltedev/sis-schedule-scraper/internal/events"
	"github.com/maltedev/sis-schedule-scraper/internal/export"
	"github.com/maltedev/sis-schedule-scraper/internal/loadwait"
	"github.com/maltedev/sis-schedule-scraper/internal/models"
	"github.com/maltedev/sis-schedule-scraper/internal/ratelimit"
	"github.com/maltedev/sis-schedule-scraper/internal/schedule"
	"github.com/maltedev/sis-schedule-scraper/internal/sis"
	"github.com/maltedev/sis-schedule-scraper/pkg/logger"
)

func main() {
	var (
		login      = flag.Bool("login", false, "Sign in with creds.json or SIS_USER/SIS_PASS instead of waiting for a manual sign-on")
		headless   = flag.Bool("headless", false, "Run browser in headless mode")
		weeks      = flag.Int("weeks", 1, "Number of consecutive weeks to harvest")
		out        = flag.String("out", "", "Output file (default from config, classes.csv)")
		format     = flag.String("format", "", "Output format: csv, ics or json (default from the file extension)")
		configFile = flag.String("config", "", "Optional YAML config file")
		store      = flag.Bool("store", false, "Persist the run and publish SCHEDULE_HARVESTED")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags given on the command line win over config and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "headless":
			cfg.Browser.Headless = *headless
		case "weeks":
			cfg.Scraper.Weeks = *weeks
		case "out":
			cfg.Output.Path = *out
		case "format":
			cfg.Output.Format = *format
		}
	})
	if !isFlagSet("headless") && !*login {
		// A manual sign-on needs a visible window.
		cfg.Browser.Headless = false
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logger.NewWithFile(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.FileOptions())
	slog.SetDefault(logger)
	logger.Info("Starting SIS schedule scraper", "weeks", cfg.Scraper.Weeks, "out", cfg.Output.Path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	if err := run(ctx, cfg, *login, *store, logger); err != nil {
		logger.Error("Scrape failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, login, store bool, logger *slog.Logger) error {
	loc, err := cfg.Output.Location()
	if err != nil {
		return err
	}

	runnerCfg := sis.RunnerConfig{
		Selectors:  cfg.SIS.Selectors,
		NavRetries: cfg.Browser.NavRetries,
	}
	if login {
		creds, err := sis.LoadCredentials(cfg.SIS.CredentialsFile)
		if err != nil {
			return err
		}
		runnerCfg.Credentials = &creds
	}

	extractorOpts, err := cfg.SIS.ExtractorOptions(logger)
	if err != nil {
		return err
	}

	b, err := browser.New(cfg.Browser.Options(), logger)
	if err != nil {
		return err
	}
	defer b.Close()

	runner := sis.NewRunner(
		b,
		runnerCfg,
		loadwait.NewWaiter(cfg.SIS.PollInterval, logger),
		schedule.NewExtractor(extractorOpts...),
		ratelimit.NewAdaptiveRateLimiter(cfg.Scraper.WeekDelayMin, cfg.Scraper.WeekDelayMax),
		logger,
	)

	result, err := runner.Run(ctx, cfg.Scraper.Weeks)
	if err != nil {
		return err
	}

	if err := export.WriteFile(cfg.Output.Path, cfg.Output.Format, result.Entries, loc); err != nil {
		return err
	}
	logger.Info("Classes written", "path", cfg.Output.Path, "classes", len(result.Entries))

	if store {
		return publish(ctx, cfg, result, logger)
	}
	return nil
}

func publish(ctx context.Context, cfg *config.Config, result *models.Run, logger *slog.Logger) error {
	db, err := database.New(ctx, cfg.Database.Options())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	outbox := database.NewOutboxRepository(db, cfg.Redis.Stream)
	if err := events.NewPublisher(db, outbox, logger).PublishScheduleHarvested(ctx, result); err != nil {
		return fmt.Errorf("classes were exported but not stored: %w", err)
	}
	return nil
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
