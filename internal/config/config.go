// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Provider      ProviderConfig      `yaml:"provider"`
	Schedule      ScheduleConfig      `yaml:"schedule"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig defines PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// ProviderConfig defines the external catalog provider settings.
type ProviderConfig struct {
	BaseURL      string `yaml:"base_url"`
	TokenURL     string `yaml:"token_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Scope        string `yaml:"scope"`
	RetailerID   string `yaml:"retailer_id"`

	PageSize int `yaml:"page_size"`
	// RootCategories restricts product syncs to the named categories and
	// their descendants. Empty means the whole catalog.
	RootCategories []string `yaml:"root_categories"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig defines the provider request budget settings.
type RateLimitConfig struct {
	WindowRequests int           `yaml:"window_requests"`
	Window         time.Duration `yaml:"window"`
	PerSecond      float64       `yaml:"per_second"`
	Burst          int           `yaml:"burst"`
}

// ScheduleConfig defines the periodic sync intervals. Zero disables a job.
type ScheduleConfig struct {
	FullSyncInterval    time.Duration `yaml:"full_sync_interval"`
	IncrementalInterval time.Duration `yaml:"incremental_interval"`
}

// NotificationsConfig defines outbound notification settings.
type NotificationsConfig struct {
	DiscordWebhookURL string `yaml:"discord_webhook_url"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads, expands, parses and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.PoolSize == 0 {
		cfg.Database.PoolSize = 10
	}

	if cfg.Provider.PageSize == 0 {
		cfg.Provider.PageSize = 100
	}
	if cfg.Provider.RateLimit.WindowRequests == 0 {
		cfg.Provider.RateLimit.WindowRequests = 4900
	}
	if cfg.Provider.RateLimit.Window == 0 {
		cfg.Provider.RateLimit.Window = time.Hour
	}
	if cfg.Provider.RateLimit.PerSecond == 0 {
		cfg.Provider.RateLimit.PerSecond = 5
	}
	if cfg.Provider.RateLimit.Burst == 0 {
		cfg.Provider.RateLimit.Burst = 5
	}

	if cfg.Schedule.FullSyncInterval == 0 {
		cfg.Schedule.FullSyncInterval = 24 * time.Hour
	}
	if cfg.Schedule.IncrementalInterval == 0 {
		cfg.Schedule.IncrementalInterval = time.Hour
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Database.Name == "" {
		errs = append(errs, errors.New("database.name is required"))
	}
	if cfg.Database.User == "" {
		errs = append(errs, errors.New("database.user is required"))
	}

	if cfg.Provider.BaseURL == "" {
		errs = append(errs, errors.New("provider.base_url is required"))
	}
	if cfg.Provider.TokenURL == "" {
		errs = append(errs, errors.New("provider.token_url is required"))
	}
	if cfg.Provider.ClientID == "" {
		errs = append(errs, errors.New("provider.client_id is required"))
	}
	if cfg.Provider.ClientSecret == "" {
		errs = append(errs, errors.New("provider.client_secret is required"))
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", cfg.Server.Port))
	}

	return errors.Join(errs...)
}
