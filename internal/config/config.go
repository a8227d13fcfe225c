// Package config loads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	GRPCAddr        string        `env:"TICTACTOE_GRPC_ADDR" envDefault:":50051"`
	HTTPAddr        string        `env:"TICTACTOE_HTTP_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"TICTACTOE_LOG_LEVEL" envDefault:"info"`
	LogDevelopment  bool          `env:"TICTACTOE_LOG_DEV" envDefault:"false"`
	DatabaseURL     string        `env:"TICTACTOE_DATABASE_URL"`
	SubscriberBuf   int           `env:"TICTACTOE_SUBSCRIBER_BUFFER" envDefault:"16"`
	ReapInterval    time.Duration `env:"TICTACTOE_REAP_INTERVAL" envDefault:"30s"`
	FinishedIdle    time.Duration `env:"TICTACTOE_FINISHED_IDLE" envDefault:"5m"`
	AbandonedIdle   time.Duration `env:"TICTACTOE_ABANDONED_IDLE" envDefault:"30m"`
	ShutdownTimeout time.Duration `env:"TICTACTOE_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads the given .env files (".env" when none are named), then parses
// the environment. Variables already set win over file values; missing files
// are ignored.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.GRPCAddr == "" && c.HTTPAddr == "" {
		errs = append(errs, errors.New("at least one of TICTACTOE_GRPC_ADDR and TICTACTOE_HTTP_ADDR is required"))
	}
	if c.SubscriberBuf < 1 {
		errs = append(errs, fmt.Errorf("TICTACTOE_SUBSCRIBER_BUFFER must be positive, got %d", c.SubscriberBuf))
	}
	if c.ReapInterval < 0 {
		errs = append(errs, fmt.Errorf("TICTACTOE_REAP_INTERVAL must not be negative, got %s", c.ReapInterval))
	}
	if c.FinishedIdle < 0 || c.AbandonedIdle < 0 {
		errs = append(errs, errors.New("idle windows must not be negative"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("TICTACTOE_SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout))
	}
	return errors.Join(errs...)
}
