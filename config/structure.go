package config

import (
	"time"

	"github.com/salesdash/servekit/cache/redis"
	"github.com/salesdash/servekit/ratelimit"
)

// Config is the full configuration surface of the serving layer.
type Config struct {
	App       AppConfig        `koanf:"app"`
	Redis     redis.Config     `koanf:"redis"`
	TTL       TTLConfig        `koanf:"ttl"`
	RateLimit ratelimit.Config `koanf:"ratelimit"`
	PreGuard  PreGuardConfig   `koanf:"preguard"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name     string `koanf:"name"`
	Env      string `koanf:"env"`
	LogLevel string `koanf:"log_level"`
	// LogPretty switches log output to the human-readable console format.
	LogPretty bool `koanf:"log_pretty"`
}

// TTLConfig holds per-domain cache entry lifetimes.
type TTLConfig struct {
	Dashboard time.Duration `koanf:"dashboard"`
	Product   time.Duration `koanf:"product"`
	Customer  time.Duration `koanf:"customer"`
	Trend     time.Duration `koanf:"trend"`
	Realtime  time.Duration `koanf:"realtime"`
}

// PreGuardConfig configures the coarse per-IP guard in front of the
// sliding-window limiter.
type PreGuardConfig struct {
	// RequestsPerSecond is the sustained per-IP rate; 0 disables the guard.
	RequestsPerSecond int `koanf:"requests_per_second"`
}
