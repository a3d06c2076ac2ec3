// Package keyspace is the catalogue of cache key templates and the
// formatter that substitutes parameters into them. Exact keys and wildcard
// deletion patterns are built from the same template so they cannot drift
// apart.
package keyspace

import (
	"fmt"
	"regexp"
	"strings"
)

// Template is a parameterized cache key, e.g.
// "analytics:product:{product_id}:{period}".
type Template string

// Key templates, namespaced by domain. Every cached analytical result in
// the system uses one of these; ad-hoc key strings are a defect.
const (
	// Dashboard
	DashboardOverview Template = "analytics:dashboard:overview:{date_range}"
	RealtimeMetrics   Template = "analytics:realtime_metrics"

	// Products
	ProductInsights    Template = "analytics:product:insights:{period}:{sort}"
	ProductPerformance Template = "analytics:product:{product_id}:{period}"
	TopProducts        Template = "analytics:product:top:{limit}:{period}"

	// Categories
	CategoryBreakdown   Template = "analytics:category:breakdown:{period}"
	CategoryPerformance Template = "analytics:category:{category_id}:{period}"

	// Customers
	CustomerSegments  Template = "analytics:customer:segments"
	CustomerMetrics   Template = "analytics:customer:{customer_id}:{period}"
	CustomerRetention Template = "analytics:customer:retention:{period}"
	TopCustomers      Template = "analytics:customer:top:{limit}:{period}"

	// Trends
	RevenueTrends Template = "analytics:revenue_trends:{period}"
	ProfitTrends  Template = "analytics:profit_trends:{period}"
	OrderTrends   Template = "analytics:order_trends:{period}"

	// Sales
	SalesOverview        Template = "analytics:sales:overview:{date_range}"
	ProfitabilityMetrics Template = "analytics:profitability:{period}"
	MarginAnalysis       Template = "analytics:margin:{group_by}:{period}"

	// Sales reps
	SalesRepPerformance Template = "analytics:salesrep:{sales_rep_id}:{period}"
	TopSalesReps        Template = "analytics:salesrep:top:{limit}:{period}"
)

// Namespace is the prefix shared by every template. ClearAll-style sweeps
// target "analytics:*".
const Namespace = "analytics"

// Params carries template parameter values. Values are rendered with
// fmt.Sprint, so ints, UUIDs, and strings all work.
type Params map[string]any

// KeyFormatError reports a missing placeholder during strict substitution.
// This is a programmer error and should fail loudly.
type KeyFormatError struct {
	Template    Template
	Placeholder string
}

func (e *KeyFormatError) Error() string {
	return fmt.Sprintf("keyspace: missing placeholder %q for template %q", e.Placeholder, e.Template)
}

var placeholderRe = regexp.MustCompile(`\{([a-z_]+)\}`)

// Key performs strict substitution of params into the template. Every
// placeholder must be supplied; extra params are ignored. The produced key
// never contains a literal "{...}".
func Key(t Template, params Params) (string, error) {
	var missing string

	key := placeholderRe.ReplaceAllStringFunc(string(t), func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := params[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return match
		}
		return fmt.Sprint(value)
	})

	if missing != "" {
		return "", &KeyFormatError{Template: t, Placeholder: missing}
	}
	return key, nil
}

// MustKey is like Key but panics on a missing placeholder. Use only where
// the parameter set is statically known to be complete.
func MustKey(t Template, params Params) string {
	key, err := Key(t, params)
	if err != nil {
		panic(err)
	}
	return key
}

// Pattern builds a wildcard deletion pattern from the template. Supplied
// params are substituted; every remaining placeholder becomes "*".
func Pattern(t Template, params Params) string {
	return placeholderRe.ReplaceAllStringFunc(string(t), func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := params[name]; ok {
			return fmt.Sprint(value)
		}
		return "*"
	})
}

// Placeholders returns the placeholder names of a template in order.
func Placeholders(t Template) []string {
	matches := placeholderRe.FindAllStringSubmatch(string(t), -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// NamespacePattern returns the pattern matching every key in the catalogue.
func NamespacePattern() string {
	return Namespace + ":*"
}

// HasPlaceholders reports whether a formatted string still contains an
// unsubstituted placeholder. Used by tests to assert key hygiene.
func HasPlaceholders(key string) bool {
	return strings.Contains(key, "{") || strings.Contains(key, "}")
}
