package monitoring

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MeterProvider bridges OpenTelemetry instruments, including those recorded
// by otelhttp, into the collector's Prometheus registry.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	meter    metric.Meter
}

// NewMeterProvider registers an OTel Prometheus reader on the collector's
// registry and installs it as the global meter provider.
func NewMeterProvider(collector *MetricsCollector, serviceName string) (*MeterProvider, error) {
	exporter, err := prometheus.New(
		prometheus.WithRegisterer(collector.Registry()),
		prometheus.WithoutScopeInfo(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	return &MeterProvider{
		provider: provider,
		meter:    provider.Meter(serviceName),
	}, nil
}

// Meter returns the service meter
func (m *MeterProvider) Meter() metric.Meter {
	return m.meter
}

// Shutdown stops collection
func (m *MeterProvider) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
