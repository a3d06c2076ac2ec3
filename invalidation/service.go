// Package invalidation maps domain mutation events to the cache key
// patterns that must be purged. The cascade rules here are the staleness
// contract of the serving layer: every write path must call the matching
// On* hook synchronously after a successful commit.
package invalidation

import (
	"context"

	"github.com/google/uuid"

	"github.com/salesdash/servekit/cache"
	"github.com/salesdash/servekit/keyspace"
	"github.com/salesdash/servekit/logger"
)

// Service issues pattern deletes against the cache store in response to
// domain events. Construct one per process and inject it into mutation
// handlers.
type Service struct {
	store *cache.Store
	log   logger.Logger
}

// NewService creates an invalidation service over the given store.
func NewService(store *cache.Store, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{store: store, log: log}
}

// InvalidateDashboard purges all dashboard overview caches.
func (s *Service) InvalidateDashboard(ctx context.Context) int {
	deleted := s.store.DeletePattern(ctx, keyspace.Pattern(keyspace.DashboardOverview, nil))
	s.log.Info().Int("keys", deleted).Msg("invalidated dashboard cache")
	return deleted
}

// InvalidateProduct purges caches for one product, or all products when
// productID is nil.
func (s *Service) InvalidateProduct(ctx context.Context, productID *uuid.UUID) int {
	params := keyspace.Params{}
	if productID != nil {
		params["product_id"] = *productID
	}

	deleted := s.store.DeletePattern(ctx, keyspace.Pattern(keyspace.ProductPerformance, params))
	s.log.Info().Int("keys", deleted).Msg("invalidated product cache")
	return deleted
}

// InvalidateCustomer purges caches for one customer, or all customers when
// customerID is nil.
func (s *Service) InvalidateCustomer(ctx context.Context, customerID *uuid.UUID) int {
	params := keyspace.Params{}
	if customerID != nil {
		params["customer_id"] = *customerID
	}

	deleted := s.store.DeletePattern(ctx, keyspace.Pattern(keyspace.CustomerMetrics, params))
	s.log.Info().Int("keys", deleted).Msg("invalidated customer cache")
	return deleted
}

// InvalidateSalesRep purges caches for one sales rep, or all when
// salesRepID is nil.
func (s *Service) InvalidateSalesRep(ctx context.Context, salesRepID *uuid.UUID) int {
	params := keyspace.Params{}
	if salesRepID != nil {
		params["sales_rep_id"] = *salesRepID
	}

	deleted := s.store.DeletePattern(ctx, keyspace.Pattern(keyspace.SalesRepPerformance, params))
	s.log.Info().Int("keys", deleted).Msg("invalidated sales rep cache")
	return deleted
}

// InvalidateCategory purges caches for one category, or all when
// categoryID is nil.
func (s *Service) InvalidateCategory(ctx context.Context, categoryID *uuid.UUID) int {
	params := keyspace.Params{}
	if categoryID != nil {
		params["category_id"] = *categoryID
	}

	deleted := s.store.DeletePattern(ctx, keyspace.Pattern(keyspace.CategoryPerformance, params))
	s.log.Info().Int("keys", deleted).Msg("invalidated category cache")
	return deleted
}

// InvalidateTrends purges every trend family: revenue, profit, and orders.
func (s *Service) InvalidateTrends(ctx context.Context) int {
	patterns := []string{
		keyspace.Pattern(keyspace.RevenueTrends, nil),
		keyspace.Pattern(keyspace.ProfitTrends, nil),
		keyspace.Pattern(keyspace.OrderTrends, nil),
	}

	total := 0
	for _, pattern := range patterns {
		total += s.store.DeletePattern(ctx, pattern)
	}

	s.log.Info().Int("keys", total).Msg("invalidated trend caches")
	return total
}

// InvalidateRealtime purges the real-time metrics cache.
func (s *Service) InvalidateRealtime(ctx context.Context) int {
	deleted := s.store.DeletePattern(ctx, keyspace.Pattern(keyspace.RealtimeMetrics, nil))
	s.log.Info().Int("keys", deleted).Msg("invalidated realtime cache")
	return deleted
}

// OnOrderCreated handles a new order: dashboard totals, the ordering
// customer's metrics, all trends, and realtime metrics are stale.
func (s *Service) OnOrderCreated(ctx context.Context, orderID, customerID uuid.UUID) {
	s.log.Info().Str("order_id", orderID.String()).Msg("order created, invalidating related caches")

	s.InvalidateDashboard(ctx)
	s.InvalidateCustomer(ctx, &customerID)
	s.InvalidateTrends(ctx)
	s.InvalidateRealtime(ctx)
}

// OnOrderUpdated handles an order update. Status transitions (e.g. pending
// to completed) move revenue between buckets, so they additionally
// invalidate dashboard, customer, and trends. Realtime metrics are stale
// either way.
func (s *Service) OnOrderUpdated(ctx context.Context, orderID, customerID uuid.UUID, statusChanged bool) {
	s.log.Info().Str("order_id", orderID.String()).Bool("status_changed", statusChanged).
		Msg("order updated, invalidating related caches")

	if statusChanged {
		s.InvalidateDashboard(ctx)
		s.InvalidateCustomer(ctx, &customerID)
		s.InvalidateTrends(ctx)
	}

	s.InvalidateRealtime(ctx)
}

// OnProductUpdated handles a product change: the product's own metrics,
// its category rollup, and the dashboard (top products) are stale.
func (s *Service) OnProductUpdated(ctx context.Context, productID, categoryID uuid.UUID) {
	s.log.Info().Str("product_id", productID.String()).Msg("product updated, invalidating related caches")

	s.InvalidateProduct(ctx, &productID)
	s.InvalidateCategory(ctx, &categoryID)
	s.InvalidateDashboard(ctx)
}

// OnCustomerUpdated handles a customer change.
func (s *Service) OnCustomerUpdated(ctx context.Context, customerID uuid.UUID) {
	s.log.Info().Str("customer_id", customerID.String()).Msg("customer updated, invalidating related caches")

	s.InvalidateCustomer(ctx, &customerID)
	s.InvalidateDashboard(ctx)
}

// OnSalesRepUpdated handles a sales rep change.
func (s *Service) OnSalesRepUpdated(ctx context.Context, salesRepID uuid.UUID) {
	s.log.Info().Str("sales_rep_id", salesRepID.String()).Msg("sales rep updated, invalidating related caches")

	s.InvalidateSalesRep(ctx, &salesRepID)
	s.InvalidateDashboard(ctx)
}

// OnMaterializedViewRefreshed handles a materialized view refresh. The
// refresh may have changed any derived aggregate, so every domain is swept.
func (s *Service) OnMaterializedViewRefreshed(ctx context.Context, viewName string) {
	s.log.Info().Str("view", viewName).Msg("materialized view refreshed, invalidating all caches")

	s.InvalidateDashboard(ctx)
	s.InvalidateProduct(ctx, nil)
	s.InvalidateCustomer(ctx, nil)
	s.InvalidateSalesRep(ctx, nil)
	s.InvalidateCategory(ctx, nil)
	s.InvalidateTrends(ctx)
}

// ClearAll flushes the whole cache namespace. Operator-triggered and
// full-refresh paths only.
func (s *Service) ClearAll(ctx context.Context) bool {
	s.log.Warn().Msg("clearing all application caches")
	return s.store.ClearAll(ctx)
}
