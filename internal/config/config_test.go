package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultsConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	return &cfg
}

func TestDefaults(t *testing.T) {
	cfg := defaultsConfig(t)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, DefaultUserAgent, cfg.Live.UserAgent)
	assert.Equal(t, 30*time.Second, cfg.Live.FetchTimeout)
	assert.Equal(t, "无分组", cfg.Live.UngroupedLabel)
	assert.Equal(t, "admin", cfg.Admin.OwnerUsername)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "0 */6 * * *", cfg.Scheduler.Cron)

	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad driver", func(c *Config) { c.Database.Driver = "oracle" }, "database.driver"},
		{"missing dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad fetch timeout", func(c *Config) { c.Live.FetchTimeout = 0 }, "live.fetch_timeout"},
		{"missing owner", func(c *Config) { c.Admin.OwnerUsername = "" }, "admin.owner_username"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultsConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestServerAddress(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", Port: 9000}
	assert.Equal(t, "127.0.0.1:9000", cfg.Address())
}
