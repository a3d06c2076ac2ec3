package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, "salesdash", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)

	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, 10, cfg.Redis.PoolSize)

	assert.Equal(t, 5*time.Minute, cfg.TTL.Dashboard)
	assert.Equal(t, 10*time.Minute, cfg.TTL.Product)
	assert.Equal(t, 15*time.Minute, cfg.TTL.Trend)
	assert.Equal(t, 30*time.Second, cfg.TTL.Realtime)

	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 100, cfg.RateLimit.DefaultLimit)
	assert.Equal(t, 30, cfg.RateLimit.EndpointLimits["/api/v1/orders"])
	assert.Contains(t, cfg.RateLimit.ExemptPaths, "/docs")

	assert.Zero(t, cfg.PreGuard.RequestsPerSecond)
}

func TestLoadMissingFileIsOK(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "salesdash", cfg.App.Name)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  name: salesdash-staging
  log_level: debug
redis:
  host: redis.internal
  port: 6380
ttl:
  realtime: 10s
ratelimit:
  default_limit: 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "salesdash-staging", cfg.App.Name)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "redis.internal", cfg.Redis.Host)
	assert.Equal(t, 6380, cfg.Redis.Port)
	assert.Equal(t, 10*time.Second, cfg.TTL.Realtime)
	assert.Equal(t, 50, cfg.RateLimit.DefaultLimit)

	// Untouched keys keep their defaults.
	assert.Equal(t, 5*time.Minute, cfg.TTL.Dashboard)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
}

func TestLoadEnvOverridesAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("redis:\n  host: from-yaml\n"), 0o600))

	t.Setenv("SERVEKIT_REDIS_HOST", "from-env")
	t.Setenv("SERVEKIT_APP_ENV", "production")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Redis.Host)
	assert.Equal(t, "production", cfg.App.Env)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ratelimit:\n  default_limit: -5\n"), 0o600))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_limit")
}

func TestValidate(t *testing.T) {
	base := func(t *testing.T) *Config {
		cfg, err := LoadFile("")
		require.NoError(t, err)
		return cfg
	}

	t.Run("NegativeTTL", func(t *testing.T) {
		cfg := base(t)
		cfg.TTL.Product = -time.Second

		err := Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ttl.product")
	})

	t.Run("NegativePreGuard", func(t *testing.T) {
		cfg := base(t)
		cfg.PreGuard.RequestsPerSecond = -1

		err := Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "preguard")
	})

	t.Run("MissingRedisHost", func(t *testing.T) {
		cfg := base(t)
		cfg.Redis.Host = ""

		assert.Error(t, Validate(cfg))
	})
}
