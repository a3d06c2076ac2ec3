// Package app wires the serving layer together: one explicitly constructed
// cache store, rate limiter, and invalidation service per process, created
// at startup and torn down at shutdown. There are no package-level
// singletons; everything is injected from here.
package app

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/salesdash/servekit/analytics"
	"github.com/salesdash/servekit/cache"
	"github.com/salesdash/servekit/cache/redis"
	"github.com/salesdash/servekit/config"
	"github.com/salesdash/servekit/invalidation"
	"github.com/salesdash/servekit/logger"
	"github.com/salesdash/servekit/ratelimit"
	"github.com/salesdash/servekit/server"
)

// App owns the process-scoped serving-layer components.
type App struct {
	cfg *config.Config
	log logger.Logger

	Store        *cache.Store
	Limiter      *ratelimit.Limiter
	Invalidation *invalidation.Service
}

// New constructs the components from configuration. The cache connection
// is not dialed yet; call Start.
func New(cfg *config.Config) *App {
	log := logger.New(cfg.App.LogLevel, cfg.App.LogPretty)

	store := cache.NewStore(redis.Dialer(&cfg.Redis), log)
	limiter := ratelimit.NewLimiter(cfg.RateLimit.CleanupInterval)

	return &App{
		cfg:          cfg,
		log:          log,
		Store:        store,
		Limiter:      limiter,
		Invalidation: invalidation.NewService(store, log),
	}
}

// Start dials the cache backend. A failed dial leaves the process running
// cache-less; it is not an error.
func (a *App) Start(ctx context.Context) {
	a.Store.Connect(ctx)
}

// Logger returns the application logger.
func (a *App) Logger() logger.Logger {
	return a.log
}

// AnalyticsService builds the cached analytics operations over the given
// data source.
func (a *App) AnalyticsService(ds analytics.DataSource) *analytics.Service {
	return analytics.NewService(ds, a.Store, a.Invalidation, analytics.TTLs{
		Dashboard: a.cfg.TTL.Dashboard,
		Product:   a.cfg.TTL.Product,
		Customer:  a.cfg.TTL.Customer,
		Trend:     a.cfg.TTL.Trend,
		Realtime:  a.cfg.TTL.Realtime,
	})
}

// Middleware returns the request-path middleware chain, outermost first:
// the IP pre-guard, then sliding-window admission control.
func (a *App) Middleware() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		server.IPPreGuard(a.cfg.PreGuard.RequestsPerSecond),
		server.RateLimit(a.Limiter, a.cfg.RateLimit, a.log),
	}
}

// CacheStatsHandler exposes the store's hit/miss counters.
func (a *App) CacheStatsHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, a.Store.Stats())
	}
}

// Close releases the cache connection. Call during shutdown.
func (a *App) Close() error {
	return a.Store.Close()
}
