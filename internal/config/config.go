package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config application configuration
type Config struct {
	// Telegram
	TelegramToken string `env:"TELEGRAM_TOKEN,required"`

	// Database: either a full URL or assembled from the parts below
	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST" envDefault:"localhost"`
	DBPort      string `env:"DB_PORT" envDefault:"5432"`
	DBName      string `env:"DB_NAME" envDefault:"calendar_bot"`
	DBUser      string `env:"DB_USER" envDefault:"postgres"`
	DBPassword  string `env:"DB_PASSWORD" envDefault:"postgres"`

	// Calendar
	CheckIntervalMinutes int           `env:"CHECK_INTERVAL_MINUTES" envDefault:"60"`
	DefaultCalDAVURL     string        `env:"CALDAV_URL" envDefault:"https://caldav.icloud.com/"`
	CalDAVTimeout        time.Duration `env:"CALDAV_TIMEOUT" envDefault:"30s"`
	SendTimeout          time.Duration `env:"SEND_TIMEOUT" envDefault:"10s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.CheckIntervalMinutes <= 0 {
		return nil, fmt.Errorf("CHECK_INTERVAL_MINUTES must be positive, got %d", cfg.CheckIntervalMinutes)
	}

	return cfg, nil
}

// CheckInterval returns the global scheduler tick period
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMinutes) * time.Minute
}

// DatabaseDSN returns the PostgreSQL connection string. DATABASE_URL wins
// when set; otherwise the DSN is assembled from the individual variables
// with the password URL-escaped.
func (c *Config) DatabaseDSN() string {
	if c.DatabaseURL != "" {
		// Heroku-style postgres:// URLs are accepted by pgx as-is, keep the
		// canonical scheme for consistency with the assembled form.
		if strings.HasPrefix(c.DatabaseURL, "postgres://") {
			return "postgresql://" + strings.TrimPrefix(c.DatabaseURL, "postgres://")
		}
		return c.DatabaseURL
	}

	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s",
		c.DBUser,
		url.QueryEscape(c.DBPassword),
		c.DBHost,
		c.DBPort,
		c.DBName,
	)
}
