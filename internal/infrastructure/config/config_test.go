package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "PantryPilot", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://localhost:3000/api", cfg.API.BaseURL)
	assert.Equal(t, 12, cfg.Search.PageSize)
	assert.Equal(t, 180, cfg.Search.DefaultMaxTime)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	health, ready := cfg.HealthPaths()
	assert.Equal(t, "/health", health)
	assert.Equal(t, "/ready", ready)
	assert.Equal(t, 30*time.Second, cfg.Health.PollInterval)
	assert.Equal(t, 1, cfg.Health.Retries)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.UsesRedis())
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  environment: staging
api:
  base_url: https://api.example.test/api
session:
  backend: redis
search:
  page_size: 24
monitoring:
  readiness_path: /readyz
`), 0o600))

	t.Setenv("PANTRYPILOT_SERVER_PORT", "9191")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, "https://api.example.test/api", cfg.API.BaseURL)
	assert.Equal(t, 24, cfg.Search.PageSize)
	assert.Equal(t, 9191, cfg.Server.Port)
	health, ready := cfg.HealthPaths()
	assert.Equal(t, "/health", health)
	assert.Equal(t, "/readyz", ready)
	assert.True(t, cfg.UsesRedis())
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:     AppConfig{Name: "PantryPilot", Environment: "development"},
			Server:  ServerConfig{Port: 8080},
			API:     APIConfig{BaseURL: "http://localhost:3000/api"},
			Session: SessionConfig{Backend: "memory"},
			Cache:   CacheConfig{Backend: "memory"},
			Search:  SearchConfig{PageSize: 12, DefaultMaxTime: 180},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"missing name", func(c *Config) { c.App.Name = "" }, "app.name"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"relative api url", func(c *Config) { c.API.BaseURL = "/api" }, "api.base_url"},
		{"unknown session backend", func(c *Config) { c.Session.Backend = "cookie" }, "session.backend"},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "cache.backend"},
		{"production without secret", func(c *Config) { c.App.Environment = "production" }, "session.secret"},
		{"zero page size", func(c *Config) { c.Search.PageSize = 0 }, "search.page_size"},
		{"zero max time", func(c *Config) { c.Search.DefaultMaxTime = 0 }, "search.default_max_time"},
		{"relative health path", func(c *Config) { c.Monitoring.HealthCheckPath = "healthz" }, "monitoring.health_check_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
