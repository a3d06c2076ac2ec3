package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const (
	// IPPreGuardCleanup is how long unused IP buckets stay in memory.
	IPPreGuardCleanup = 5 * time.Minute

	// IPPreGuardBurstMultiplier allows short bursts above the sustained rate.
	IPPreGuardBurstMultiplier = 2
)

// IPPreGuard returns a coarse per-IP requests-per-second guard that runs in
// front of the sliding-window limiter to absorb obvious floods before any
// per-client bookkeeping happens. A threshold of 0 or less disables it.
func IPPreGuard(threshold int) echo.MiddlewareFunc {
	if threshold <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	config := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(threshold),
				Burst:     threshold * IPPreGuardBurstMultiplier,
				ExpiresIn: IPPreGuardCleanup,
			},
		),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, _ error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]any{
				"error": map[string]any{
					"code":    "RATE_LIMIT_EXCEEDED",
					"message": "IP rate limit exceeded",
					"status":  http.StatusTooManyRequests,
				},
			})
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]any{
				"error": map[string]any{
					"code":    "RATE_LIMIT_EXCEEDED",
					"message": "Too many requests from this IP",
					"status":  http.StatusTooManyRequests,
				},
			})
		},
	}

	return middleware.RateLimiterWithConfig(config)
}
