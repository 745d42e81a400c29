// Package config loads workshop settings from the environment and an
// optional YAML file and turns them into an emulator and session options.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tendant/simple-workshop/pkg/workshop"
)

// Config is the complete workshop configuration.
type Config struct {
	AppID            workshop.AppID `yaml:"app_id" env:"WORKSHOP_APP_ID" env-description:"Application id"`
	User             string         `yaml:"user" env:"WORKSHOP_USER" env-description:"Identity owning published items"`
	PollInterval     time.Duration  `yaml:"poll_interval" env:"WORKSHOP_POLL_INTERVAL" env-default:"100ms"`
	OperationTimeout time.Duration  `yaml:"operation_timeout" env:"WORKSHOP_OPERATION_TIMEOUT" env-default:"10m" env-description:"Bound on each asynchronous call, 0 waits forever"`
	StagingPrefix    string         `yaml:"staging_prefix" env:"WORKSHOP_STAGING_PREFIX" env-default:"kpsteam_"`
	InstallDir       string         `yaml:"install_dir" env:"WORKSHOP_INSTALL_DIR"`
	RestartCheck     bool           `yaml:"restart_check" env:"WORKSHOP_RESTART_CHECK" env-default:"true"`
	ListenAddr       string         `yaml:"listen_addr" env:"WORKSHOP_LISTEN_ADDR" env-default:":8080"`

	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" env-default:"text"`

	// DatabaseURL selects the item catalog: "memory", "postgres://...",
	// "postgresql://..." or "sqlite://path".
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL" env-default:"memory"`
	// StorageURL selects the blob store: "memory://", "file:///path" or
	// "s3://bucket?region=...&endpoint=...&path_style=true&create_bucket=true&prefix=...".
	StorageURL string `yaml:"storage_url" env:"STORAGE_URL" env-default:"memory://"`

	AWSAccessKeyID     string `yaml:"aws_access_key_id" env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `yaml:"aws_secret_access_key" env:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion          string `yaml:"aws_region" env:"AWS_REGION"`
}

// Option applies configuration to a Config instance.
type Option func(*Config) error

// Load reads the environment, or the YAML file at path overlaid with the
// environment when path is set, then applies opts and validates the result.
func Load(path string, opts ...Option) (*Config, error) {
	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Usage describes the environment variables Config reads.
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return text
}

// WithAppID overrides the application id.
func WithAppID(app workshop.AppID) Option {
	return func(c *Config) error {
		if app != 0 {
			c.AppID = app
		}
		return nil
	}
}

// WithOperationTimeout overrides the per-call timeout. Negative values are
// ignored.
func WithOperationTimeout(d time.Duration) Option {
	return func(c *Config) error {
		if d >= 0 {
			c.OperationTimeout = d
		}
		return nil
	}
}

// WithStorageURL overrides the blob store.
func WithStorageURL(url string) Option {
	return func(c *Config) error {
		if url != "" {
			c.StorageURL = url
		}
		return nil
	}
}

// WithDatabaseURL overrides the item catalog.
func WithDatabaseURL(url string) Option {
	return func(c *Config) error {
		if url != "" {
			c.DatabaseURL = url
		}
		return nil
	}
}

// WithLogLevel overrides the log level.
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		if level != "" {
			c.LogLevel = level
		}
		return nil
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return errors.New("poll_interval must be positive")
	}
	if c.OperationTimeout < 0 {
		return errors.New("operation_timeout must not be negative")
	}
	if strings.ContainsAny(c.StagingPrefix, `/\`) {
		return fmt.Errorf("staging_prefix %q must not contain path separators", c.StagingPrefix)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("log_format must be 'text' or 'json', got %q", c.LogFormat)
	}
	if _, err := c.Database(); err != nil {
		return err
	}
	if _, err := c.Storage(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel. Unknown values fall back to info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SessionOptions converts the configuration into session options.
func (c *Config) SessionOptions(logger *slog.Logger, metrics workshop.Metrics) []workshop.Option {
	opts := []workshop.Option{
		workshop.WithLogger(logger),
		workshop.WithMetrics(metrics),
		workshop.WithPollInterval(c.PollInterval),
		workshop.WithOperationTimeout(c.OperationTimeout),
		workshop.WithStagingPrefix(c.StagingPrefix),
	}
	if c.InstallDir != "" {
		opts = append(opts, workshop.WithInstallDir(c.InstallDir))
	}
	if c.RestartCheck {
		opts = append(opts, workshop.WithRestartCheck())
	}
	return opts
}
