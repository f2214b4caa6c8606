package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const meterName = "github.com/wissam-databricks/sncf-travel-assistant-databricks"

// MetricsProvider bundles the meter provider with the scrape handler that
// exposes it
type MetricsProvider struct {
	MeterProvider *sdkmetric.MeterProvider
	Handler       http.Handler
	Metrics       *Metrics
}

// Shutdown flushes and stops the meter provider
func (p *MetricsProvider) Shutdown(ctx context.Context) error {
	return p.MeterProvider.Shutdown(ctx)
}

// SetupMetrics builds an OpenTelemetry meter provider exported through a
// dedicated Prometheus registry
func SetupMetrics(serviceName string) (*MetricsProvider, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exp, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exp),
		sdkmetric.WithResource(serviceResource(serviceName)),
	)

	m, err := NewMetrics(mp)
	if err != nil {
		_ = mp.Shutdown(context.Background())
		return nil, err
	}

	return &MetricsProvider{
		MeterProvider: mp,
		Handler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Metrics:       m,
	}, nil
}

func serviceResource(serviceName string) *resource.Resource {
	return resource.NewSchemaless(attribute.String("service.name", serviceName))
}

// Metrics holds the gateway instruments. A nil *Metrics records nothing.
type Metrics struct {
	chatRequests       metric.Int64Counter
	upstreamDuration   metric.Float64Histogram
	breakerTransitions metric.Int64Counter
	wsConnections      metric.Int64UpDownCounter
}

// NewMetrics creates the instruments on mp
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)

	chatRequests, err := meter.Int64Counter("chat.requests",
		metric.WithDescription("Chat requests handled, by responder mode and outcome"))
	if err != nil {
		return nil, err
	}

	upstreamDuration, err := meter.Float64Histogram("agent.upstream.duration",
		metric.WithDescription("Latency of calls to the agent-serving endpoint"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	breakerTransitions, err := meter.Int64Counter("agent.breaker.transitions",
		metric.WithDescription("Circuit breaker state changes, by target state"))
	if err != nil {
		return nil, err
	}

	wsConnections, err := meter.Int64UpDownCounter("ws.connections",
		metric.WithDescription("Open chat websocket connections"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		chatRequests:       chatRequests,
		upstreamDuration:   upstreamDuration,
		breakerTransitions: breakerTransitions,
		wsConnections:      wsConnections,
	}, nil
}

// RecordChat counts one chat request
func (m *Metrics) RecordChat(ctx context.Context, mode, outcome string) {
	if m == nil {
		return
	}
	m.chatRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("outcome", outcome),
	))
}

// RecordUpstream records one attempt against the agent endpoint
func (m *Metrics) RecordUpstream(ctx context.Context, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("status", status)))
}

// RecordBreakerTransition counts a breaker state change
func (m *Metrics) RecordBreakerTransition(ctx context.Context, breaker, to string) {
	if m == nil {
		return
	}
	m.breakerTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("breaker", breaker),
		attribute.String("state", to),
	))
}

// AddWSConnections adjusts the open websocket gauge by delta
func (m *Metrics) AddWSConnections(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.wsConnections.Add(ctx, delta)
}
