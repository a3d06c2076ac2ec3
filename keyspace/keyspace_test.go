package keyspace

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	t.Run("AllPlaceholders", func(t *testing.T) {
		key, err := Key(ProductPerformance, Params{"product_id": "999", "period": "daily"})
		require.NoError(t, err)
		assert.Equal(t, "analytics:product:999:daily", key)
	})

	t.Run("UUIDParam", func(t *testing.T) {
		id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

		key, err := Key(CustomerMetrics, Params{"customer_id": id, "period": "7d"})
		require.NoError(t, err)
		assert.Equal(t, "analytics:customer:6ba7b810-9dad-11d1-80b4-00c04fd430c8:7d", key)
	})

	t.Run("IntParam", func(t *testing.T) {
		key, err := Key(TopProducts, Params{"limit": 10, "period": "month"})
		require.NoError(t, err)
		assert.Equal(t, "analytics:product:top:10:month", key)
	})

	t.Run("MissingPlaceholder", func(t *testing.T) {
		_, err := Key(ProductPerformance, Params{"product_id": "999"})
		require.Error(t, err)

		var formatErr *KeyFormatError
		require.True(t, errors.As(err, &formatErr))
		assert.Equal(t, "period", formatErr.Placeholder)
	})

	t.Run("ExtraParamsIgnored", func(t *testing.T) {
		key, err := Key(RealtimeMetrics, Params{"unused": "x"})
		require.NoError(t, err)
		assert.Equal(t, "analytics:realtime_metrics", key)
	})

	t.Run("NoLiteralBraces", func(t *testing.T) {
		for _, tmpl := range []Template{
			DashboardOverview, ProductPerformance, CustomerMetrics,
			SalesRepPerformance, RevenueTrends, MarginAnalysis,
		} {
			params := Params{}
			for _, name := range Placeholders(tmpl) {
				params[name] = "x"
			}

			key, err := Key(tmpl, params)
			require.NoError(t, err)
			assert.False(t, HasPlaceholders(key), "template %q produced %q", tmpl, key)
		}
	})
}

func TestMustKey(t *testing.T) {
	assert.Panics(t, func() {
		MustKey(ProductPerformance, nil)
	})

	assert.NotPanics(t, func() {
		MustKey(RealtimeMetrics, nil)
	})
}

func TestPattern(t *testing.T) {
	t.Run("AllWildcards", func(t *testing.T) {
		assert.Equal(t, "analytics:product:*:*", Pattern(ProductPerformance, nil))
	})

	t.Run("PartialSubstitution", func(t *testing.T) {
		pattern := Pattern(CustomerMetrics, Params{"customer_id": "c42"})
		assert.Equal(t, "analytics:customer:c42:*", pattern)
	})

	t.Run("StaysInSyncWithKey", func(t *testing.T) {
		// A key built from a template must match the pattern built from
		// the same template with the same bound params.
		key := MustKey(CustomerMetrics, Params{"customer_id": "c42", "period": "7d"})
		pattern := Pattern(CustomerMetrics, Params{"customer_id": "c42"})

		assert.Equal(t, "analytics:customer:c42:7d", key)
		assert.Equal(t, "analytics:customer:c42:*", pattern)
	})
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"product_id", "period"}, Placeholders(ProductPerformance))
	assert.Empty(t, Placeholders(RealtimeMetrics))
}

func TestNamespacePattern(t *testing.T) {
	assert.Equal(t, "analytics:*", NamespacePattern())
}
