// Package tracking records cache operation metrics through the
// OpenTelemetry metric API. No SDK or exporter is configured here; the
// embedding application decides where the measurements go.
package tracking

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	cacheMeterName = "servekit/cache"

	metricOperationDuration = "db.client.operation.duration" // Histogram in seconds
	metricCacheHit          = "cache.hit"
	metricCacheMiss         = "cache.miss"

	attrDBSystem       = "db.system.name"
	attrDBOperation    = "db.operation.name"
	attrErrorType      = "error.type"
	attrCacheHitStatus = "cache.hit"
)

// Cache operation names.
const (
	OpGet           = "get"
	OpSet           = "set"
	OpDelete        = "delete"
	OpDeletePattern = "delete_pattern"
)

var (
	meterOnce sync.Once

	operationDuration metric.Float64Histogram
	hitCounter        metric.Int64Counter
	missCounter       metric.Int64Counter
)

func logMetricError(name string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: failed to initialize cache metric %s: %v\n", name, err)
	}
}

func initMeter() {
	meter := otel.Meter(cacheMeterName)

	var err error

	operationDuration, err = meter.Float64Histogram(
		metricOperationDuration,
		metric.WithDescription("Duration of remote cache operations"),
		metric.WithUnit("s"),
	)
	logMetricError(metricOperationDuration, err)

	hitCounter, err = meter.Int64Counter(
		metricCacheHit,
		metric.WithDescription("Number of cache hits"),
		metric.WithUnit("{hit}"),
	)
	logMetricError(metricCacheHit, err)

	missCounter, err = meter.Int64Counter(
		metricCacheMiss,
		metric.WithDescription("Number of cache misses"),
		metric.WithUnit("{miss}"),
	)
	logMetricError(metricCacheMiss, err)
}

// RecordOperation records the duration and outcome of a cache operation.
// For lookup operations the hit flag also feeds the hit/miss counters.
func RecordOperation(ctx context.Context, operation string, duration time.Duration, hit bool, err error) {
	meterOnce.Do(initMeter)

	attrs := []attribute.KeyValue{
		attribute.String(attrDBSystem, "redis"),
		attribute.String(attrDBOperation, operation),
	}

	if operation == OpGet {
		attrs = append(attrs, attribute.Bool(attrCacheHitStatus, hit))
	}

	if err != nil {
		attrs = append(attrs, attribute.String(attrErrorType, classifyError(err)))
	}

	if operationDuration != nil {
		operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}

	if operation != OpGet {
		return
	}
	if hit {
		if hitCounter != nil {
			hitCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
	} else if missCounter != nil {
		missCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// classifyError buckets backend errors into low-cardinality metric labels.
func classifyError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection"):
		return "connection_error"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "closed"):
		return "closed"
	case strings.Contains(msg, "not found"):
		return "not_found"
	default:
		return "error"
	}
}
