// Package config loads the serving layer's configuration from defaults,
// an optional YAML file, and environment variables, in increasing order of
// priority.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces the environment variables this package reads,
// e.g. SERVEKIT_REDIS_HOST maps to redis.host.
const EnvPrefix = "SERVEKIT_"

// Load builds the configuration: defaults first, then config.yaml when
// present, then SERVEKIT_* environment variables.
func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

// LoadFile is Load with an explicit YAML path. The file is optional.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !strings.Contains(err.Error(), "no such file") {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := k.Load(envprovider.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func defaults() map[string]any {
	return map[string]any{
		"app.name":      "salesdash",
		"app.env":       "development",
		"app.log_level": "info",
		"app.log_pretty": false,

		"redis.host":          "localhost",
		"redis.port":          6379,
		"redis.database":      0,
		"redis.pool_size":     10,
		"redis.dial_timeout":  "5s",
		"redis.read_timeout":  "3s",
		"redis.write_timeout": "3s",
		"redis.max_retries":   3,

		"ttl.dashboard": "300s",
		"ttl.product":   "600s",
		"ttl.customer":  "600s",
		"ttl.trend":     "900s",
		"ttl.realtime":  "30s",

		"ratelimit.enabled":          true,
		"ratelimit.default_limit":    100,
		"ratelimit.window":           "60s",
		"ratelimit.cleanup_interval": "60s",
		"ratelimit.endpoint_limits": map[string]int{
			"/api/v1/orders":      30,
			"/api/v1/orders/bulk": 5,
			"/health":             1000,
		},
		"ratelimit.exempt_paths": []string{"/docs", "/redoc", "/openapi.json"},

		"preguard.requests_per_second": 0,
	}
}

// Validate fails fast on inconsistent configuration.
func Validate(cfg *Config) error {
	if err := cfg.Redis.Validate(); err != nil {
		return err
	}
	if err := cfg.RateLimit.Validate(); err != nil {
		return err
	}

	ttls := map[string]time.Duration{
		"ttl.dashboard": cfg.TTL.Dashboard,
		"ttl.product":   cfg.TTL.Product,
		"ttl.customer":  cfg.TTL.Customer,
		"ttl.trend":     cfg.TTL.Trend,
		"ttl.realtime":  cfg.TTL.Realtime,
	}
	for field, d := range ttls {
		if d < 0 {
			return fmt.Errorf("%s cannot be negative", field)
		}
	}

	if cfg.PreGuard.RequestsPerSecond < 0 {
		return fmt.Errorf("preguard.requests_per_second cannot be negative")
	}

	return nil
}
