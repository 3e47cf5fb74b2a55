package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config keeps runtime settings for the service.
type Config struct {
	DatabaseURL      string        `env:"DATABASE_URL" envDefault:"pet_feeding.db"`
	HTTPPort         int           `env:"HTTP_PORT" envDefault:"8080"`
	CronSecret       string        `env:"CRON_SECRET"`
	TelegramToken    string        `env:"TELEGRAM_TOKEN"`
	DeliverySchedule string        `env:"DELIVERY_SCHEDULE" envDefault:"@every 1m"`
	DeliveryTimeout  time.Duration `env:"DELIVERY_TIMEOUT" envDefault:"30s"`
	MissedGrace      time.Duration `env:"MISSED_FEEDING_GRACE" envDefault:"20m"`
	DuplicateWindow  time.Duration `env:"DUPLICATE_FEEDING_WINDOW" envDefault:"5m"`
	BatchChunkSize   int           `env:"BATCH_CHUNK_SIZE" envDefault:"150"`
	DefaultTimezone  string        `env:"DEFAULT_TIMEZONE" envDefault:"UTC"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	Environment      string        `env:"ENVIRONMENT" envDefault:"development"`
}

// Load reads configuration from environment variables and an optional .env file.
// Variables already present in the environment win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges and that the delivery schedule and timezone parse.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DatabaseURL, validation.Required),
		validation.Field(&c.HTTPPort, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.DeliverySchedule, validation.Required, validation.By(validCronSpec)),
		validation.Field(&c.DeliveryTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.MissedGrace, validation.Min(time.Duration(0))),
		validation.Field(&c.DuplicateWindow, validation.Min(time.Duration(0))),
		validation.Field(&c.BatchChunkSize, validation.Required, validation.Min(1), validation.Max(1000)),
		validation.Field(&c.DefaultTimezone, validation.Required, validation.By(validTimezone)),
		validation.Field(&c.LogLevel, validation.Required),
	)
}

// Location returns the default timezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Address returns the HTTP listen address.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func validCronSpec(value any) error {
	spec, _ := value.(string)
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

func validTimezone(value any) error {
	name, _ := value.(string)
	if _, err := time.LoadLocation(name); err != nil {
		return fmt.Errorf("unknown timezone %q", name)
	}
	return nil
}
