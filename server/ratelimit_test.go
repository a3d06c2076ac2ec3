package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdash/servekit/ratelimit"
)

func newTestApp(cfg ratelimit.Config) *echo.Echo {
	e := echo.New()
	e.Use(RateLimit(ratelimit.NewLimiter(cfg.CleanupInterval), cfg, nil))

	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.GET("/api/v1/orders", ok)
	e.GET("/api/v1/dashboard", ok)
	e.GET("/docs", ok)

	return e
}

func doRequest(e *echo.Echo, path string, decorate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.0.0.1:54321"
	if decorate != nil {
		decorate(req)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitAdmitted(t *testing.T) {
	cfg := ratelimit.DefaultConfig()
	cfg.EndpointLimits = map[string]int{"/api/v1/orders": 5}
	e := newTestApp(cfg)

	rec := doRequest(e, "/api/v1/orders", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", rec.Header().Get(HeaderRateLimitLimit))
	assert.Equal(t, "4", rec.Header().Get(HeaderRateLimitRemaining))
	assert.NotEmpty(t, rec.Header().Get(HeaderRateLimitReset))
}

func TestRateLimitRejected(t *testing.T) {
	cfg := ratelimit.DefaultConfig()
	cfg.EndpointLimits = map[string]int{"/api/v1/orders": 2}
	e := newTestApp(cfg)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, doRequest(e, "/api/v1/orders", nil).Code)
	}

	rec := doRequest(e, "/api/v1/orders", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get(HeaderRateLimitLimit))
	assert.Equal(t, "0", rec.Header().Get(HeaderRateLimitRemaining))

	retryAfter, err := strconv.Atoi(rec.Header().Get(HeaderRetryAfter))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retryAfter, 1)
	assert.LessOrEqual(t, retryAfter, 60)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Status  int    `json:"status"`
			Details struct {
				RetryAfter   int `json:"retry_after"`
				CurrentCount int `json:"current_count"`
				Limit        int `json:"limit"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body.Error.Code)
	assert.Equal(t, http.StatusTooManyRequests, body.Error.Status)
	assert.Equal(t, 2, body.Error.Details.Limit)
	assert.Equal(t, 2, body.Error.Details.CurrentCount)
	assert.Equal(t, retryAfter, body.Error.Details.RetryAfter)
}

func TestRateLimitExemptPath(t *testing.T) {
	cfg := ratelimit.DefaultConfig()
	cfg.DefaultLimit = 1
	cfg.EndpointLimits = nil
	e := newTestApp(cfg)

	for i := 0; i < 5; i++ {
		rec := doRequest(e, "/docs", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get(HeaderRateLimitLimit), "exempt paths carry no rate headers")
	}
}

func TestRateLimitDisabled(t *testing.T) {
	cfg := ratelimit.DefaultConfig()
	cfg.Enabled = false
	cfg.DefaultLimit = 1
	cfg.EndpointLimits = nil
	e := newTestApp(cfg)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(e, "/api/v1/orders", nil).Code)
	}
}

func TestRateLimitPerEndpointBudgets(t *testing.T) {
	cfg := ratelimit.DefaultConfig()
	cfg.DefaultLimit = 10
	cfg.EndpointLimits = map[string]int{"/api/v1/orders": 1}
	e := newTestApp(cfg)

	require.Equal(t, http.StatusOK, doRequest(e, "/api/v1/orders", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(e, "/api/v1/orders", nil).Code)

	// The same client still has budget on another endpoint.
	assert.Equal(t, http.StatusOK, doRequest(e, "/api/v1/dashboard", nil).Code)
}

func TestRateLimitClientIsolation(t *testing.T) {
	cfg := ratelimit.DefaultConfig()
	cfg.DefaultLimit = 1
	cfg.EndpointLimits = nil
	e := newTestApp(cfg)

	withKey := func(key string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set(HeaderAPIKey, key) }
	}

	require.Equal(t, http.StatusOK, doRequest(e, "/api/v1/orders", withKey("alpha")).Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(e, "/api/v1/orders", withKey("alpha")).Code)

	// A different API key has its own window.
	assert.Equal(t, http.StatusOK, doRequest(e, "/api/v1/orders", withKey("beta")).Code)
}

func TestClientID(t *testing.T) {
	e := echo.New()

	newCtx := func(decorate func(*http.Request)) echo.Context {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:54321"
		if decorate != nil {
			decorate(req)
		}
		return e.NewContext(req, httptest.NewRecorder())
	}

	t.Run("UserIDWins", func(t *testing.T) {
		c := newCtx(func(r *http.Request) {
			r.Header.Set(HeaderAPIKey, "secret")
			r.Header.Set(echo.HeaderXForwardedFor, "1.2.3.4")
		})
		c.Set(ContextUserIDKey, "u-42")

		assert.Equal(t, "user:u-42", ClientID(c))
	})

	t.Run("APIKeyBeatsForwardedFor", func(t *testing.T) {
		c := newCtx(func(r *http.Request) {
			r.Header.Set(HeaderAPIKey, "secret")
			r.Header.Set(echo.HeaderXForwardedFor, "1.2.3.4")
		})

		assert.Equal(t, "key:secret", ClientID(c))
	})

	t.Run("ForwardedForFirstHop", func(t *testing.T) {
		c := newCtx(func(r *http.Request) {
			r.Header.Set(echo.HeaderXForwardedFor, "1.2.3.4, 5.6.7.8")
		})

		assert.Equal(t, "ip:1.2.3.4", ClientID(c))
	})

	t.Run("RemoteAddrFallback", func(t *testing.T) {
		c := newCtx(nil)

		assert.Equal(t, "ip:10.0.0.1", ClientID(c))
	})

	t.Run("UserAgentLastResort", func(t *testing.T) {
		c := newCtx(func(r *http.Request) {
			r.RemoteAddr = ""
			r.Header.Set("User-Agent", "curl/8.0")
		})

		id := ClientID(c)
		assert.Contains(t, id, "ua:")

		// Deterministic for the same agent.
		c2 := newCtx(func(r *http.Request) {
			r.RemoteAddr = ""
			r.Header.Set("User-Agent", "curl/8.0")
		})
		assert.Equal(t, id, ClientID(c2))
	})
}

func TestRateLimitWindowExpiry(t *testing.T) {
	// Uses a tiny real window since the middleware reads the wall clock.
	cfg := ratelimit.DefaultConfig()
	cfg.DefaultLimit = 1
	cfg.Window = 150 * time.Millisecond
	cfg.EndpointLimits = nil
	e := newTestApp(cfg)

	require.Equal(t, http.StatusOK, doRequest(e, "/api/v1/orders", nil).Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest(e, "/api/v1/orders", nil).Code)

	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, http.StatusOK, doRequest(e, "/api/v1/orders", nil).Code)
}
