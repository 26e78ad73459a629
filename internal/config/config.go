// Package config provides configuration management for misttv using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort      = 8080
	defaultServerTimeout   = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxIdleTime = 30 * time.Minute

	// DefaultUserAgent is sent on playlist and guide fetches when a live
	// source carries no override.
	DefaultUserAgent = "AptvPlayer/1.4.10"

	defaultFetchTimeout   = 30 * time.Second
	defaultRefreshCron    = "0 */6 * * *"
	defaultUngroupedLabel = "无分组"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Live      LiveConfig      `mapstructure:"live"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// LiveConfig holds live playlist and guide ingestion configuration.
type LiveConfig struct {
	// BaseURL is prepended to root-relative playlist URLs.
	BaseURL string `mapstructure:"base_url"`

	// UserAgent is the default User-Agent for playlist and guide fetches.
	UserAgent string `mapstructure:"user_agent"`

	// FetchTimeout bounds a single playlist fetch.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`

	// UngroupedLabel is assigned to channels without a group-title.
	UngroupedLabel string `mapstructure:"ungrouped_label"`
}

// AdminConfig holds admin configuration reconciliation settings.
type AdminConfig struct {
	// OwnerUsername is the pinned owner identity. The config self-check
	// guarantees exactly one user with this name holds the owner role.
	OwnerUsername string `mapstructure:"owner_username"`

	// ConfigFile is an optional path to a config blob (JSON, M3U, or
	// line-oriented records) folded into the persisted admin configuration
	// at startup.
	ConfigFile string `mapstructure:"config_file"`
}

// SchedulerConfig holds the periodic refresh schedule.
type SchedulerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with MISTTV_ and use underscores for
// nesting. Example: MISTTV_SERVER_PORT=8080.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/misttv")
		v.AddConfigPath("$HOME/.misttv")
	}

	v.SetEnvPrefix("MISTTV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "misttv.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("live.base_url", "http://localhost:8080")
	v.SetDefault("live.user_agent", DefaultUserAgent)
	v.SetDefault("live.fetch_timeout", defaultFetchTimeout)
	v.SetDefault("live.ungrouped_label", defaultUngroupedLabel)

	v.SetDefault("admin.owner_username", "admin")
	v.SetDefault("admin.config_file", "")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.cron", defaultRefreshCron)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Live.FetchTimeout <= 0 {
		return fmt.Errorf("live.fetch_timeout must be positive")
	}
	if c.Admin.OwnerUsername == "" {
		return fmt.Errorf("admin.owner_username is required")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
