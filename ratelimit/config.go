package ratelimit

import (
	"fmt"
	"strings"
	"time"
)

// Config holds admission-control settings for the middleware layer.
type Config struct {
	// Enabled turns the limiter on or off globally.
	Enabled bool `koanf:"enabled"`

	// DefaultLimit is the request budget per window for endpoints without
	// an override.
	DefaultLimit int `koanf:"default_limit"`

	// Window is the trailing interval requests are counted over.
	Window time.Duration `koanf:"window"`

	// EndpointLimits maps endpoint paths to per-window budgets. Overrides
	// take precedence over DefaultLimit.
	EndpointLimits map[string]int `koanf:"endpoint_limits"`

	// ExemptPaths bypass the limiter entirely (documentation, schema,
	// health checks). Matched by prefix.
	ExemptPaths []string `koanf:"exempt_paths"`

	// CleanupInterval is how often the limiter sweeps expired window
	// records.
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// DefaultConfig returns the stock admission-control settings.
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		DefaultLimit: 100,
		Window:       time.Minute,
		EndpointLimits: map[string]int{
			"/api/v1/orders":      30,
			"/api/v1/orders/bulk": 5,
			"/health":             1000,
		},
		ExemptPaths:     []string{"/docs", "/redoc", "/openapi.json"},
		CleanupInterval: DefaultCleanupInterval,
	}
}

// Validate performs fail-fast validation.
func (c *Config) Validate() error {
	if c.DefaultLimit <= 0 {
		return fmt.Errorf("ratelimit: default_limit must be positive, got %d", c.DefaultLimit)
	}
	if c.Window <= 0 {
		return fmt.Errorf("ratelimit: window must be positive, got %s", c.Window)
	}
	for path, limit := range c.EndpointLimits {
		if limit <= 0 {
			return fmt.Errorf("ratelimit: endpoint limit for %q must be positive, got %d", path, limit)
		}
	}
	return nil
}

// LimitFor returns the budget for an endpoint: its override when present,
// the default otherwise.
func (c *Config) LimitFor(path string) int {
	if limit, ok := c.EndpointLimits[path]; ok {
		return limit
	}
	return c.DefaultLimit
}

// IsExempt reports whether a path bypasses the limiter.
func (c *Config) IsExempt(path string) bool {
	for _, exempt := range c.ExemptPaths {
		if strings.HasPrefix(path, exempt) {
			return true
		}
	}
	return false
}
