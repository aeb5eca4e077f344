package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"achievement-service/internal/config"
	"achievement-service/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const exportInterval = 10 * time.Second

// Telemetry owns the meter provider. MeterProvider is nil when export is
// disabled and the global no-op provider backs every instrument.
type Telemetry struct {
	MeterProvider *sdkmetric.MeterProvider
	Metrics       *metrics.Metrics
}

func Init(ctx context.Context, cfg config.TelemetryConfig, serviceName, version, env string, logger *slog.Logger) (*Telemetry, error) {
	t := &Telemetry{}

	if cfg.Enabled {
		mp, err := newMeterProvider(ctx, cfg.Endpoint, serviceName, version)
		if err != nil {
			return nil, err
		}
		otel.SetMeterProvider(mp)
		t.MeterProvider = mp
		logger.Info("OTel metrics initialized", "endpoint", cfg.Endpoint)
	} else {
		logger.Info("OTel metrics export disabled")
	}

	m, err := metrics.New(serviceName, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	t.Metrics = m

	meter := otel.Meter(serviceName)
	if err := m.Health.RegisterServiceInfo(meter, serviceName, version, env); err != nil {
		logger.Warn("failed to register service info", "error", err)
	}
	if err := m.Health.RegisterDependencies(meter, []string{"postgres", "redis", "events"}); err != nil {
		logger.Warn("failed to register dependency gauges", "error", err)
	}

	return t, nil
}

func newMeterProvider(ctx context.Context, endpoint, serviceName, version string) (*sdkmetric.MeterProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval))),
	), nil
}

// Shutdown flushes pending metrics.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.MeterProvider == nil {
		return nil
	}
	if err := t.MeterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}
