package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Observability owns the OpenTelemetry meter and tracer providers for the
// manager process.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer

	jobCounter         otelmetric.Int64Counter
	jobDuration        otelmetric.Float64Histogram
	operationCounter   otelmetric.Int64Counter
	operationDuration  otelmetric.Float64Histogram
	allocationDuration otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())))
	otel.SetTracerProvider(tp)

	o := &Observability{
		tracerProvider: tp,
		tracer:         tp.Tracer(serviceName),
	}

	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return o
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	o.meterProvider = provider
	o.meter = provider.Meter(serviceName)

	o.jobCounter, _ = o.meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	o.jobDuration, _ = o.meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	o.operationCounter, _ = o.meter.Int64Counter(
		"lifecycle.operations",
		otelmetric.WithDescription("Lifecycle engine operations by outcome"),
	)
	o.operationDuration, _ = o.meter.Float64Histogram(
		"lifecycle.operation.duration",
		otelmetric.WithDescription("Lifecycle engine operation duration"),
		otelmetric.WithUnit("ms"),
	)
	o.allocationDuration, _ = o.meter.Float64Histogram(
		"sequence.allocation.duration",
		otelmetric.WithDescription("Time to allocate a document number"),
		otelmetric.WithUnit("ms"),
	)

	return o
}

// StartSpan opens a span on the manager's tracer.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o == nil || o.tracer == nil {
		return otel.Tracer("codavert-workers").Start(ctx, name, trace.WithAttributes(attrs...))
	}
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	if o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

// RecordOperation counts one lifecycle engine operation.
func (o *Observability) RecordOperation(ctx context.Context, operation, outcome string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
	if o.operationCounter != nil {
		o.operationCounter.Add(ctx, 1, attrs)
	}
	if o.operationDuration != nil {
		o.operationDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	}
}

func (o *Observability) RecordAllocation(ctx context.Context, kind, outcome string, duration time.Duration) {
	if o.allocationDuration != nil {
		o.allocationDuration.Record(ctx, float64(duration.Microseconds())/1000, otelmetric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}
