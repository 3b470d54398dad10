package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/maltedev/sis-schedule-scraper/internal/sis"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Browser  BrowserConfig  `yaml:"browser"`
	SIS      SISConfig      `yaml:"sis"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Output   OutputConfig   `yaml:"output"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Relay    RelayConfig    `yaml:"relay"`
	Queue    QueueConfig    `yaml:"queue"`
	Consumer ConsumerConfig `yaml:"consumer"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	Host            string        `yaml:"host"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type BrowserConfig struct {
	Headless       bool          `yaml:"headless"`
	Timeout        time.Duration `yaml:"timeout"`
	ViewportWidth  int           `yaml:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height"`
	TimezoneID     string        `yaml:"timezone"`
	Locale         string        `yaml:"locale"`
	NavRetries     int           `yaml:"nav_retries"`
}

type SISConfig struct {
	Selectors       sis.Selectors `yaml:"selectors"`
	CredentialsFile string        `yaml:"credentials_file"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	FirstWeekday    string        `yaml:"first_weekday"`
	CellFilter      string        `yaml:"cell_filter"`
	ColumnTolerance float64       `yaml:"column_tolerance"`
}

type ScraperConfig struct {
	Weeks        int           `yaml:"weeks"`
	WeekDelayMin time.Duration `yaml:"week_delay_min"`
	WeekDelayMax time.Duration `yaml:"week_delay_max"`
}

type OutputConfig struct {
	Path     string `yaml:"path"`
	Format   string `yaml:"format"`
	Timezone string `yaml:"timezone"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
}

type RelayConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	BatchSize    int           `yaml:"batch_size"`
}

type QueueConfig struct {
	MaxSize int `yaml:"max_size"`
}

// ConsumerConfig drives the calendar feed consumer.
type ConsumerConfig struct {
	Group       string `yaml:"group"`
	Name        string `yaml:"name"`
	CalendarDir string `yaml:"calendar_dir"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  []string{"http://localhost:*", "https://localhost:*"},
		},
		Browser: BrowserConfig{
			Headless:       true,
			Timeout:        30 * time.Second,
			ViewportWidth:  1920,
			ViewportHeight: 1080,
			TimezoneID:     "America/New_York",
			Locale:         "en-US",
			NavRetries:     3,
		},
		SIS: SISConfig{
			Selectors:       sis.DefaultSelectors(),
			CredentialsFile: "creds.json",
			PollInterval:    300 * time.Millisecond,
			FirstWeekday:    "monday",
			CellFilter:      "background",
		},
		Scraper: ScraperConfig{
			Weeks:        1,
			WeekDelayMin: 500 * time.Millisecond,
			WeekDelayMax: 1500 * time.Millisecond,
		},
		Output: OutputConfig{
			Path:     "classes.csv",
			Timezone: "America/New_York",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			DBName:   "sis_schedule",
			SSLMode:  "disable",
			MaxConns: 10,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Stream: "stream:schedule",
		},
		Relay: RelayConfig{
			PollInterval: 5 * time.Second,
			BatchSize:    100,
		},
		Queue: QueueConfig{
			MaxSize: 100,
		},
		Consumer: ConsumerConfig{
			Group:       "schedule-consumer-group",
			Name:        "consumer-1",
			CalendarDir: "calendars",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// the environment, later sources winning.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getIntOrDefault("SERVER_PORT", c.Server.Port)
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	c.Server.ReadTimeout = getDurationOrDefault("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getDurationOrDefault("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.AllowedOrigins = getStringSliceOrDefault("SERVER_ALLOWED_ORIGINS", c.Server.AllowedOrigins)

	c.Browser.Headless = getBoolOrDefault("BROWSER_HEADLESS", c.Browser.Headless)
	c.Browser.Timeout = getDurationOrDefault("BROWSER_TIMEOUT", c.Browser.Timeout)
	c.Browser.TimezoneID = getEnvOrDefault("BROWSER_TIMEZONE", c.Browser.TimezoneID)
	c.Browser.Locale = getEnvOrDefault("BROWSER_LOCALE", c.Browser.Locale)
	c.Browser.NavRetries = getIntOrDefault("BROWSER_NAV_RETRIES", c.Browser.NavRetries)

	c.SIS.Selectors.LandingURL = getEnvOrDefault("SIS_LANDING_URL", c.SIS.Selectors.LandingURL)
	c.SIS.Selectors.CalendarURL = getEnvOrDefault("SIS_CALENDAR_URL", c.SIS.Selectors.CalendarURL)
	c.SIS.CredentialsFile = getEnvOrDefault("SIS_CREDENTIALS_FILE", c.SIS.CredentialsFile)
	c.SIS.PollInterval = getDurationOrDefault("SIS_POLL_INTERVAL", c.SIS.PollInterval)
	c.SIS.FirstWeekday = getEnvOrDefault("SIS_FIRST_WEEKDAY", c.SIS.FirstWeekday)
	c.SIS.CellFilter = getEnvOrDefault("SIS_CELL_FILTER", c.SIS.CellFilter)
	c.SIS.ColumnTolerance = getFloatOrDefault("SIS_COLUMN_TOLERANCE", c.SIS.ColumnTolerance)

	c.Scraper.Weeks = getIntOrDefault("SCRAPER_WEEKS", c.Scraper.Weeks)
	c.Scraper.WeekDelayMin = getDurationOrDefault("SCRAPER_WEEK_DELAY_MIN", c.Scraper.WeekDelayMin)
	c.Scraper.WeekDelayMax = getDurationOrDefault("SCRAPER_WEEK_DELAY_MAX", c.Scraper.WeekDelayMax)

	c.Output.Path = getEnvOrDefault("OUTPUT_PATH", c.Output.Path)
	c.Output.Format = getEnvOrDefault("OUTPUT_FORMAT", c.Output.Format)
	c.Output.Timezone = getEnvOrDefault("OUTPUT_TIMEZONE", c.Output.Timezone)

	c.Database.Host = getEnvOrDefault("DB_HOST", c.Database.Host)
	c.Database.Port = getIntOrDefault("DB_PORT", c.Database.Port)
	c.Database.User = getEnvOrDefault("DB_USER", c.Database.User)
	c.Database.Password = getEnvOrDefault("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnvOrDefault("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnvOrDefault("DB_SSL_MODE", c.Database.SSLMode)

	c.Redis.Addr = getEnvOrDefault("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getIntOrDefault("REDIS_DB", c.Redis.DB)
	c.Redis.Stream = getEnvOrDefault("REDIS_STREAM", c.Redis.Stream)

	c.Relay.PollInterval = getDurationOrDefault("RELAY_POLL_INTERVAL", c.Relay.PollInterval)
	c.Relay.BatchSize = getIntOrDefault("RELAY_BATCH_SIZE", c.Relay.BatchSize)

	c.Queue.MaxSize = getIntOrDefault("QUEUE_MAX_SIZE", c.Queue.MaxSize)

	c.Consumer.Group = getEnvOrDefault("CONSUMER_GROUP", c.Consumer.Group)
	c.Consumer.Name = getEnvOrDefault("CONSUMER_NAME", c.Consumer.Name)
	c.Consumer.CalendarDir = getEnvOrDefault("CONSUMER_CALENDAR_DIR", c.Consumer.CalendarDir)

	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnvOrDefault("LOG_FORMAT", c.Logging.Format)
	c.Logging.File = getEnvOrDefault("LOG_FILE", c.Logging.File)
}

func (c *Config) Validate() error {
	if c.Scraper.Weeks < 1 {
		return fmt.Errorf("SCRAPER_WEEKS must be at least 1")
	}

	if c.Scraper.WeekDelayMin > c.Scraper.WeekDelayMax {
		return fmt.Errorf("SCRAPER_WEEK_DELAY_MIN cannot be greater than SCRAPER_WEEK_DELAY_MAX")
	}

	if c.SIS.PollInterval <= 0 {
		return fmt.Errorf("SIS_POLL_INTERVAL must be positive")
	}

	if c.SIS.ColumnTolerance < 0 {
		return fmt.Errorf("SIS_COLUMN_TOLERANCE cannot be negative")
	}

	if _, err := ParseWeekday(c.SIS.FirstWeekday); err != nil {
		return err
	}

	switch c.SIS.CellFilter {
	case "background", "text":
	default:
		return fmt.Errorf("SIS_CELL_FILTER must be background or text, got %q", c.SIS.CellFilter)
	}

	switch c.Output.Format {
	case "", "csv", "ics", "json":
	default:
		return fmt.Errorf("OUTPUT_FORMAT must be csv, ics or json, got %q", c.Output.Format)
	}

	if _, err := time.LoadLocation(c.Output.Timezone); err != nil {
		return fmt.Errorf("OUTPUT_TIMEZONE: %w", err)
	}

	if c.Relay.BatchSize < 1 {
		return fmt.Errorf("RELAY_BATCH_SIZE must be at least 1")
	}

	return nil
}

// ParseWeekday accepts full or three-letter English day names.
func ParseWeekday(name string) (time.Weekday, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if n == full || n == full[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", name)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
