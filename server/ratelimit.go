// Package server provides the HTTP middleware surface of the serving
// layer: sliding-window admission control with standard rate headers, and
// a coarse IP pre-guard in front of it.
package server

import (
	"fmt"
	"hash/fnv"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/salesdash/servekit/logger"
	"github.com/salesdash/servekit/ratelimit"
)

const (
	// ContextUserIDKey is where the (external) auth layer stores the
	// authenticated user id on the echo context.
	ContextUserIDKey = "user_id"

	// HeaderAPIKey identifies callers using API keys.
	HeaderAPIKey = "X-API-Key"

	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
)

// RateLimit returns admission-control middleware backed by the
// sliding-window limiter. Admitted requests proceed with rate headers
// attached; rejected requests get a structured 429 with Retry-After.
func RateLimit(limiter *ratelimit.Limiter, cfg ratelimit.Config, log logger.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = logger.NewNop()
	}

	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if cfg.IsExempt(path) {
				return next(c)
			}

			clientID := ClientID(c)
			limit := cfg.LimitFor(path)

			decision := limiter.Allow(clientID, path, limit, cfg.Window)
			if !decision.Allowed {
				log.Debug().Str("client", clientID).Str("path", path).
					Int("count", decision.Count).Msg("rate limit exceeded")

				header := c.Response().Header()
				header.Set(HeaderRateLimitLimit, strconv.Itoa(limit))
				header.Set(HeaderRateLimitRemaining, "0")
				header.Set(HeaderRateLimitReset, strconv.FormatInt(time.Now().Unix()+int64(decision.ResetSeconds), 10))
				header.Set(HeaderRetryAfter, strconv.Itoa(decision.ResetSeconds))

				return c.JSON(http.StatusTooManyRequests, map[string]any{
					"error": map[string]any{
						"code":    "RATE_LIMIT_EXCEEDED",
						"message": fmt.Sprintf("Rate limit exceeded. Please try again in %d seconds.", decision.ResetSeconds),
						"status":  http.StatusTooManyRequests,
						"details": map[string]any{
							"retry_after":   decision.ResetSeconds,
							"current_count": decision.Count,
							"limit":         limit,
						},
					},
				})
			}

			remaining := limit - decision.Count
			if remaining < 0 {
				remaining = 0
			}

			header := c.Response().Header()
			header.Set(HeaderRateLimitLimit, strconv.Itoa(limit))
			header.Set(HeaderRateLimitRemaining, strconv.Itoa(remaining))
			header.Set(HeaderRateLimitReset, strconv.FormatInt(time.Now().Add(cfg.Window).Unix(), 10))

			return next(c)
		}
	}
}

// ClientID resolves the identity a request is rate-limited under.
// Precedence: authenticated user id, API key header, first hop of
// X-Forwarded-For, direct connection address, then a hash of the
// user-agent as last resort.
func ClientID(c echo.Context) string {
	if userID, ok := c.Get(ContextUserIDKey).(string); ok && userID != "" {
		return "user:" + userID
	}

	if apiKey := c.Request().Header.Get(HeaderAPIKey); apiKey != "" {
		return "key:" + apiKey
	}

	if forwarded := c.Request().Header.Get(echo.HeaderXForwardedFor); forwarded != "" {
		first := strings.TrimSpace(strings.SplitN(forwarded, ",", 2)[0])
		if first != "" {
			return "ip:" + first
		}
	}

	if addr := c.Request().RemoteAddr; addr != "" {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}
		if host != "" {
			return "ip:" + host
		}
	}

	h := fnv.New64a()
	h.Write([]byte(c.Request().UserAgent()))
	return "ua:" + strconv.FormatUint(h.Sum64(), 16)
}
