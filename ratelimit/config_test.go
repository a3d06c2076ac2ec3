package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 100, cfg.DefaultLimit)
	assert.Equal(t, time.Minute, cfg.Window)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "NonPositiveDefaultLimit",
			mutate:  func(c *Config) { c.DefaultLimit = 0 },
			wantErr: "default_limit",
		},
		{
			name:    "NonPositiveWindow",
			mutate:  func(c *Config) { c.Window = 0 },
			wantErr: "window",
		},
		{
			name:    "NonPositiveEndpointLimit",
			mutate:  func(c *Config) { c.EndpointLimits["/api/v1/orders"] = -1 },
			wantErr: "endpoint limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigLimitFor(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 30, cfg.LimitFor("/api/v1/orders"))
	assert.Equal(t, 5, cfg.LimitFor("/api/v1/orders/bulk"))
	assert.Equal(t, 100, cfg.LimitFor("/api/v1/dashboard"))
}

func TestConfigIsExempt(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.IsExempt("/docs"))
	assert.True(t, cfg.IsExempt("/docs/oauth2-redirect"))
	assert.True(t, cfg.IsExempt("/openapi.json"))
	assert.False(t, cfg.IsExempt("/api/v1/orders"))
	assert.False(t, cfg.IsExempt("/"))
}
