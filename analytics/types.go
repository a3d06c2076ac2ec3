package analytics

import (
	"time"

	"github.com/google/uuid"
)

// DashboardOverview is the aggregate view behind the main dashboard.
type DashboardOverview struct {
	DateRange     string  `cbor:"1,keyasint" json:"date_range"`
	TotalRevenue  float64 `cbor:"2,keyasint" json:"total_revenue"`
	TotalOrders   int64   `cbor:"3,keyasint" json:"total_orders"`
	AvgOrderValue float64 `cbor:"4,keyasint" json:"avg_order_value"`
	TotalProfit   float64 `cbor:"5,keyasint" json:"total_profit"`
}

// RealtimeMetrics is the short-lived "today so far" snapshot.
type RealtimeMetrics struct {
	OrdersToday   int64   `cbor:"1,keyasint" json:"orders_today"`
	RevenueToday  float64 `cbor:"2,keyasint" json:"revenue_today"`
	PendingOrders int64   `cbor:"3,keyasint" json:"pending_orders"`
}

// ProductPerformance aggregates one product's sales over a period.
type ProductPerformance struct {
	ProductID uuid.UUID `cbor:"1,keyasint" json:"product_id"`
	Name      string    `cbor:"2,keyasint" json:"name"`
	Revenue   float64   `cbor:"3,keyasint" json:"revenue"`
	UnitsSold int64     `cbor:"4,keyasint" json:"units_sold"`
}

// CustomerMetrics aggregates one customer's purchasing over a period.
type CustomerMetrics struct {
	CustomerID uuid.UUID `cbor:"1,keyasint" json:"customer_id"`
	TotalSpend float64   `cbor:"2,keyasint" json:"total_spend"`
	OrderCount int64     `cbor:"3,keyasint" json:"order_count"`
	Segment    string    `cbor:"4,keyasint" json:"segment"`
}

// TrendPoint is one bucket of a trend series.
type TrendPoint struct {
	Period string  `cbor:"1,keyasint" json:"period"`
	Value  float64 `cbor:"2,keyasint" json:"value"`
}

// RegionalPerformance aggregates sales for one region.
type RegionalPerformance struct {
	Region  string  `cbor:"1,keyasint" json:"region"`
	Revenue float64 `cbor:"2,keyasint" json:"revenue"`
	Orders  int64   `cbor:"3,keyasint" json:"orders"`
}

// NewOrder carries the fields of an order being created.
type NewOrder struct {
	CustomerID uuid.UUID
	SalesRepID uuid.UUID
	PlacedAt   time.Time
	Total      float64
}
