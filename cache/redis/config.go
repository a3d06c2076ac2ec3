package redis

import (
	"fmt"
	"time"

	"github.com/salesdash/servekit/cache"
)

// Config holds Redis-specific configuration options.
type Config struct {
	// Host is the Redis server hostname or IP address.
	Host string `koanf:"host"`

	// Port is the Redis server port (default: 6379).
	Port int `koanf:"port"`

	// Password for Redis authentication (optional).
	Password string `koanf:"password"`

	// Database number to use (default: 0).
	Database int `koanf:"database"`

	// PoolSize is the maximum number of socket connections (default: 10).
	PoolSize int `koanf:"pool_size"`

	// DialTimeout is the timeout for establishing new connections (default: 5s).
	DialTimeout time.Duration `koanf:"dial_timeout"`

	// ReadTimeout is the timeout for socket reads (default: 3s).
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// WriteTimeout is the timeout for socket writes (default: 3s).
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// MaxRetries is the maximum number of retries before giving up (default: 3).
	MaxRetries int `koanf:"max_retries"`
}

// Validate performs fail-fast validation of the Redis configuration.
func (c *Config) Validate() error {
	if c.Host == "" {
		return cache.NewConfigError("redis.host", "host is required", nil)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return cache.NewConfigError("redis.port", fmt.Sprintf("invalid port: %d", c.Port), nil)
	}

	if c.Database < 0 || c.Database > 15 {
		return cache.NewConfigError("redis.database", fmt.Sprintf("invalid database number: %d (must be 0-15)", c.Database), nil)
	}

	if c.PoolSize < 0 {
		return cache.NewConfigError("redis.pool_size", fmt.Sprintf("invalid pool size: %d", c.PoolSize), nil)
	}

	if c.DialTimeout < 0 {
		return cache.NewConfigError("redis.dial_timeout", "dial timeout cannot be negative", nil)
	}

	return nil
}

// Address returns the Redis server address in "host:port" format.
func (c *Config) Address() string {
	port := c.Port
	if port == 0 {
		port = 6379
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}
