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

// Metrics exposes document engine instruments.
type Metrics struct {
	computations       metric.Int64Counter
	computationErrors  metric.Int64Counter
	numbersAllocated   metric.Int64Counter
	allocationFailures metric.Int64Counter
	transitions        metric.Int64Counter
	rejectedTransition metric.Int64Counter
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
		name = "docflow"
	}
	meter := provider.Meter(name)

	computations, err := meter.Int64Counter("docflow_document_computations_total")
	if err != nil {
		return nil, err
	}
	computationErrors, err := meter.Int64Counter("docflow_document_computation_errors_total")
	if err != nil {
		return nil, err
	}
	numbersAllocated, err := meter.Int64Counter("docflow_numbers_allocated_total")
	if err != nil {
		return nil, err
	}
	allocationFailures, err := meter.Int64Counter("docflow_number_allocation_failures_total")
	if err != nil {
		return nil, err
	}
	transitions, err := meter.Int64Counter("docflow_lifecycle_transitions_total")
	if err != nil {
		return nil, err
	}
	rejected, err := meter.Int64Counter("docflow_lifecycle_rejected_transitions_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		computations:       computations,
		computationErrors:  computationErrors,
		numbersAllocated:   numbersAllocated,
		allocationFailures: allocationFailures,
		transitions:        transitions,
		rejectedTransition: rejected,
	}, nil
}

// NewNoop returns instruments backed by a no-op provider, for tests.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

// RecordComputation counts a totals computation for a document type and tax protocol.
func (m *Metrics) RecordComputation(ctx context.Context, documentType, protocol string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("document_type", strings.TrimSpace(documentType)),
		attribute.String("tax_protocol", strings.TrimSpace(protocol)),
	)
	m.computations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordComputationError(ctx context.Context, documentType, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("document_type", strings.TrimSpace(documentType)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.computationErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordNumberAllocated(ctx context.Context, documentType, backend string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("document_type", strings.TrimSpace(documentType)),
		attribute.String("backend", strings.TrimSpace(backend)),
	)
	m.numbersAllocated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordAllocationFailure(ctx context.Context, documentType, backend string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("document_type", strings.TrimSpace(documentType)),
		attribute.String("backend", strings.TrimSpace(backend)),
	)
	m.allocationFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTransition counts an accepted lifecycle transition.
func (m *Metrics) RecordTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from_status", strings.TrimSpace(from)),
		attribute.String("to_status", strings.TrimSpace(to)),
	)
	m.transitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordRejectedTransition(ctx context.Context, op, from string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(op)),
		attribute.String("from_status", strings.TrimSpace(from)),
	)
	m.rejectedTransition.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
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
	"document_type": {},
	"tax_protocol":  {},
	"backend":       {},
	"from_status":   {},
	"to_status":     {},
	"operation":     {},
	"reason":        {},
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
