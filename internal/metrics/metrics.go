package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics records queue activity. A nil *Metrics discards everything.
type Metrics struct {
	PostsScheduled  metric.Int64Counter
	PublishAttempts metric.Int64Counter
	PublishDuration metric.Float64Histogram
	LockContention  metric.Int64Counter
}

// Setup builds a meter backed by its own Prometheus registry and returns the scrape handler.
func Setup(serviceName string) (*Metrics, http.Handler, error) {
	reg := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg), otelprom.WithoutScopeInfo())
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(serviceName)

	m := &Metrics{}

	m.PostsScheduled, err = meter.Int64Counter(
		"postqueue_posts_scheduled",
		metric.WithDescription("Scheduled posts created"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.PublishAttempts, err = meter.Int64Counter(
		"postqueue_publish_attempts",
		metric.WithDescription("Publish attempts by outcome"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.PublishDuration, err = meter.Float64Histogram(
		"postqueue_publish_duration_seconds",
		metric.WithDescription("Publisher call latency in seconds"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.LockContention, err = meter.Int64Counter(
		"postqueue_lock_contention",
		metric.WithDescription("Due posts skipped because another worker held the lock"),
	)
	if err != nil {
		return nil, nil, err
	}

	return m, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}

func (m *Metrics) RecordScheduled(ctx context.Context, platform string, n int) {
	if m == nil {
		return
	}
	m.PostsScheduled.Add(ctx, int64(n), metric.WithAttributes(attribute.String("platform", platform)))
}

func (m *Metrics) RecordAttempt(ctx context.Context, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.PublishAttempts.Add(ctx, 1, attrs)
	m.PublishDuration.Record(ctx, duration.Seconds(), attrs)
}

func (m *Metrics) RecordLockContention(ctx context.Context) {
	if m == nil {
		return
	}
	m.LockContention.Add(ctx, 1)
}
