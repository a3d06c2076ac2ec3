// Package analytics glues cached business operations to the underlying
// data source. Read paths go through the memoize wrappers with per-domain
// TTLs; write paths invoke the matching invalidation hook synchronously
// after a successful commit.
//
// The package knows nothing about SQL: DataSource is the opaque "compute
// metrics for a date range" collaborator.
package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/salesdash/servekit/cache"
	"github.com/salesdash/servekit/invalidation"
	"github.com/salesdash/servekit/keyspace"
	"github.com/salesdash/servekit/memoize"
)

// topProductsCacheLimit bounds how many entries of a top-products result
// are persisted, regardless of the limit the caller asked for.
const topProductsCacheLimit = 50

// DataSource computes analytical results and applies mutations. The
// relational schema behind it is out of scope here.
type DataSource interface {
	DashboardOverview(ctx context.Context, dateRange string) (DashboardOverview, error)
	RealtimeMetrics(ctx context.Context) (RealtimeMetrics, error)
	ProductPerformance(ctx context.Context, productID uuid.UUID, period string) (ProductPerformance, error)
	TopProducts(ctx context.Context, limit int, period string) ([]ProductPerformance, error)
	CustomerMetrics(ctx context.Context, customerID uuid.UUID, period string) (CustomerMetrics, error)
	RevenueTrend(ctx context.Context, period string) ([]TrendPoint, error)
	RegionalPerformance(ctx context.Context, region string) (RegionalPerformance, error)

	CreateOrder(ctx context.Context, order NewOrder) (uuid.UUID, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) (customerID uuid.UUID, statusChanged bool, err error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, fields map[string]any) (categoryID uuid.UUID, err error)
	UpdateCustomer(ctx context.Context, customerID uuid.UUID, fields map[string]any) error
	UpdateSalesRep(ctx context.Context, salesRepID uuid.UUID, fields map[string]any) error
	RefreshMaterializedView(ctx context.Context, view string) error
}

// TTLs holds the per-domain cache lifetimes.
type TTLs struct {
	Dashboard time.Duration
	Product   time.Duration
	Customer  time.Duration
	Trend     time.Duration
	Realtime  time.Duration
}

// DefaultTTLs matches the production defaults.
func DefaultTTLs() TTLs {
	return TTLs{
		Dashboard: 5 * time.Minute,
		Product:   10 * time.Minute,
		Customer:  10 * time.Minute,
		Trend:     15 * time.Minute,
		Realtime:  30 * time.Second,
	}
}

// Service exposes the cached analytical operations.
type Service struct {
	ds     DataSource
	store  *cache.Store
	inval  *invalidation.Service
	ttl    TTLs
	flight singleflight.Group
}

// NewService wires a Service. All dependencies are injected; the service
// holds no global state.
func NewService(ds DataSource, store *cache.Store, inval *invalidation.Service, ttl TTLs) *Service {
	return &Service{ds: ds, store: store, inval: inval, ttl: ttl}
}

// DashboardOverview returns the dashboard aggregate for a date range.
// Concurrent misses on the same range are deduplicated: the dashboard is
// the most expensive query in the system and the most likely to stampede.
func (s *Service) DashboardOverview(ctx context.Context, dateRange string) (DashboardOverview, error) {
	return memoize.Do(ctx, s.store, memoize.Policy{
		Key:    keyspace.MustKey(keyspace.DashboardOverview, keyspace.Params{"date_range": dateRange}),
		TTL:    s.ttl.Dashboard,
		Flight: &s.flight,
	}, func(ctx context.Context) (DashboardOverview, error) {
		return s.ds.DashboardOverview(ctx, dateRange)
	})
}

// RealtimeMetrics returns the short-lived "today" snapshot.
func (s *Service) RealtimeMetrics(ctx context.Context) (RealtimeMetrics, error) {
	return memoize.Do(ctx, s.store, memoize.Policy{
		Key: keyspace.MustKey(keyspace.RealtimeMetrics, nil),
		TTL: s.ttl.Realtime,
	}, func(ctx context.Context) (RealtimeMetrics, error) {
		return s.ds.RealtimeMetrics(ctx)
	})
}

// ProductPerformance returns one product's aggregate for a period.
func (s *Service) ProductPerformance(ctx context.Context, productID uuid.UUID, period string) (ProductPerformance, error) {
	return memoize.Do(ctx, s.store, memoize.Policy{
		Key: keyspace.MustKey(keyspace.ProductPerformance, keyspace.Params{
			"product_id": productID,
			"period":     period,
		}),
		TTL: s.ttl.Product,
	}, func(ctx context.Context) (ProductPerformance, error) {
		return s.ds.ProductPerformance(ctx, productID, period)
	})
}

// TopProducts returns the best-selling products for a period. At most
// topProductsCacheLimit entries are cached; callers asking for more see a
// truncated result.
func (s *Service) TopProducts(ctx context.Context, limit int, period string) ([]ProductPerformance, error) {
	return memoize.DoList(ctx, s.store, memoize.Policy{
		Key: keyspace.MustKey(keyspace.TopProducts, keyspace.Params{
			"limit":  limit,
			"period": period,
		}),
		TTL:      s.ttl.Product,
		MaxItems: topProductsCacheLimit,
	}, func(ctx context.Context) ([]ProductPerformance, error) {
		return s.ds.TopProducts(ctx, limit, period)
	})
}

// CustomerMetrics returns one customer's aggregate for a period. Anonymous
// lookups (nil customer id) are never cached.
func (s *Service) CustomerMetrics(ctx context.Context, customerID uuid.UUID, period string) (CustomerMetrics, error) {
	return memoize.Do(ctx, s.store, memoize.Policy{
		Key: keyspace.MustKey(keyspace.CustomerMetrics, keyspace.Params{
			"customer_id": customerID,
			"period":      period,
		}),
		TTL:  s.ttl.Customer,
		Skip: customerID == uuid.Nil,
	}, func(ctx context.Context) (CustomerMetrics, error) {
		return s.ds.CustomerMetrics(ctx, customerID, period)
	})
}

// RevenueTrend returns the revenue trend series for a period.
func (s *Service) RevenueTrend(ctx context.Context, period string) ([]TrendPoint, error) {
	return memoize.Do(ctx, s.store, memoize.Policy{
		Key: keyspace.MustKey(keyspace.RevenueTrends, keyspace.Params{"period": period}),
		TTL: s.ttl.Trend,
	}, func(ctx context.Context) ([]TrendPoint, error) {
		return s.ds.RevenueTrend(ctx, period)
	})
}

// RegionalPerformance returns one region's aggregate. The key is derived
// from the arguments rather than a catalogue template; regional rollups are
// swept only by full-namespace invalidation.
func (s *Service) RegionalPerformance(ctx context.Context, region string) (RegionalPerformance, error) {
	return memoize.Do(ctx, s.store, memoize.Policy{
		Key: memoize.DeriveKey(keyspace.Namespace+":regional_performance", region),
		TTL: s.ttl.Trend,
	}, func(ctx context.Context) (RegionalPerformance, error) {
		return s.ds.RegionalPerformance(ctx, region)
	})
}

// CreateOrder commits a new order and invalidates the dependent caches.
// Invalidation runs only after the commit succeeds.
func (s *Service) CreateOrder(ctx context.Context, order NewOrder) (uuid.UUID, error) {
	orderID, err := s.ds.CreateOrder(ctx, order)
	if err != nil {
		return uuid.Nil, err
	}

	s.inval.OnOrderCreated(ctx, orderID, order.CustomerID)
	return orderID, nil
}

// UpdateOrderStatus transitions an order and invalidates accordingly.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) error {
	customerID, statusChanged, err := s.ds.UpdateOrderStatus(ctx, orderID, status)
	if err != nil {
		return err
	}

	s.inval.OnOrderUpdated(ctx, orderID, customerID, statusChanged)
	return nil
}

// UpdateProduct applies product changes and invalidates accordingly.
func (s *Service) UpdateProduct(ctx context.Context, productID uuid.UUID, fields map[string]any) error {
	categoryID, err := s.ds.UpdateProduct(ctx, productID, fields)
	if err != nil {
		return err
	}

	s.inval.OnProductUpdated(ctx, productID, categoryID)
	return nil
}

// UpdateCustomer applies customer changes and invalidates accordingly.
func (s *Service) UpdateCustomer(ctx context.Context, customerID uuid.UUID, fields map[string]any) error {
	if err := s.ds.UpdateCustomer(ctx, customerID, fields); err != nil {
		return err
	}

	s.inval.OnCustomerUpdated(ctx, customerID)
	return nil
}

// UpdateSalesRep applies sales rep changes and invalidates accordingly.
func (s *Service) UpdateSalesRep(ctx context.Context, salesRepID uuid.UUID, fields map[string]any) error {
	if err := s.ds.UpdateSalesRep(ctx, salesRepID, fields); err != nil {
		return err
	}

	s.inval.OnSalesRepUpdated(ctx, salesRepID)
	return nil
}

// RefreshMaterializedView refreshes a view and sweeps every derived cache.
// The cascade hook covers the catalogue templates; the extra pattern here
// covers the derived regional keys that live outside the catalogue.
func (s *Service) RefreshMaterializedView(ctx context.Context, view string) error {
	_, err := memoize.Mutate(ctx, s.store,
		[]string{keyspace.Namespace + ":regional_performance:*"},
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.ds.RefreshMaterializedView(ctx, view)
		})
	if err != nil {
		return err
	}

	s.inval.OnMaterializedViewRefreshed(ctx, view)
	return nil
}
