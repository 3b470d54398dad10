package config

import (
	"time"

	"github.com/maltedev/sis-schedule-scraper/internal/browser"
	"github.com/maltedev/sis-schedule-scraper/internal/database"
	"github.com/maltedev/sis-schedule-scraper/pkg/logger"
)

func (c BrowserConfig) Options() *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = c.Headless
	if c.Timeout > 0 {
		opts.Timeout = c.Timeout
	}
	if c.ViewportWidth > 0 && c.ViewportHeight > 0 {
		opts.ViewportWidth = c.ViewportWidth
		opts.ViewportHeight = c.ViewportHeight
	}
	if c.TimezoneID != "" {
		opts.TimezoneID = c.TimezoneID
	}
	if c.Locale != "" {
		opts.Locale = c.Locale
	}
	return opts
}

func (c DatabaseConfig) Options() database.Config {
	return database.Config{
		Host:        c.Host,
		Port:        c.Port,
		User:        c.User,
		Password:    c.Password,
		Database:    c.DBName,
		SSLMode:     c.SSLMode,
		MaxConns:    c.MaxConns,
		MinConns:    2,
		MaxConnLife: time.Hour,
		MaxConnIdle: 30 * time.Minute,
	}
}

func (c LoggingConfig) FileOptions() logger.FileOptions {
	return logger.FileOptions{
		Path:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
	}
}

// Location loads the zone class times are exported in.
func (c OutputConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
