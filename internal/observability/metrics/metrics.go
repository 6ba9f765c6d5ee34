package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	priceResolutions metric.Int64Counter
	quotes           metric.Int64Counter
	tierConflicts    metric.Int64Counter
	ordersPriced     metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "workrate"
	}
	meter := provider.Meter(name)

	priceResolutions, err := meter.Int64Counter("workrate_price_resolutions_total")
	if err != nil {
		return nil, err
	}
	quotes, err := meter.Int64Counter("workrate_quotes_total")
	if err != nil {
		return nil, err
	}
	tierConflicts, err := meter.Int64Counter("workrate_tier_conflicts_total")
	if err != nil {
		return nil, err
	}
	ordersPriced, err := meter.Int64Counter("workrate_orders_priced_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		priceResolutions: priceResolutions,
		quotes:           quotes,
		tierConflicts:    tierConflicts,
		ordersPriced:     ordersPriced,
	}, nil
}

// RecordPriceResolution increments price resolution counts by source.
func (m *Metrics) RecordPriceResolution(ctx context.Context, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source", strings.TrimSpace(source)))
	m.priceResolutions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordQuote increments served quote counts.
func (m *Metrics) RecordQuote(ctx context.Context, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source", strings.TrimSpace(source)))
	m.quotes.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTierConflict increments rejected tier write counts.
func (m *Metrics) RecordTierConflict(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.tierConflicts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordOrderPriced increments fully costed order counts.
func (m *Metrics) RecordOrderPriced(ctx context.Context, lineCount int) {
	if m == nil {
		return
	}
	m.ordersPriced.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("line_count_bucket", bucketLineCount(lineCount)),
	))
}

func bucketLineCount(count int) int {
	switch {
	case count <= 1:
		return 1
	case count <= 5:
		return 5
	case count <= 20:
		return 20
	default:
		return 100
	}
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"source":            {},
	"reason":            {},
	"endpoint":          {},
	"status_code":       {},
	"line_count_bucket": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
