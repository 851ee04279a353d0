package otel

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	traceNoop "go.opentelemetry.io/otel/trace/noop"
)

const scopeName = "github.com/hugolhafner/go-kafka-rest"

// Telemetry holds all OpenTelemetry instruments for the read workers
// When no providers are configured, all instruments are noops with zero overhead
type Telemetry struct {
	Tracer     trace.Tracer
	Propagator propagation.TextMapPropagator

	// Read lifecycle metrics
	ReadsSubmitted metric.Int64Counter
	ReadsActive    metric.Int64UpDownCounter
	ReadDuration   metric.Float64Histogram

	// Partial step metrics
	StepDuration metric.Float64Histogram
	Backoffs     metric.Int64Counter

	// Consumption metrics
	MessagesConsumed metric.Int64Counter
	BytesConsumed    metric.Int64Counter

	// Error metrics
	Errors metric.Int64Counter
}

// NewTelemetry creates a Telemetry instance from the given providers.
// all providers are optional and defaulted to noops if nil
func NewTelemetry(tp trace.TracerProvider, mp metric.MeterProvider, prop propagation.TextMapPropagator) (
	*Telemetry, error,
) {
	if tp == nil {
		tp = traceNoop.NewTracerProvider()
	}
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	if prop == nil {
		prop = propagation.TraceContext{}
	}

	tracer := tp.Tracer(scopeName)
	meter := mp.Meter(scopeName)

	readsSubmitted, err := meter.Int64Counter(
		"kafkarest.reads.submitted",
		metric.WithDescription("Read requests submitted to a worker"),
	)
	if err != nil {
		return nil, err
	}

	readsActive, err := meter.Int64UpDownCounter(
		"kafkarest.reads.active",
		metric.WithDescription("Read requests scheduled and not yet finished"),
	)
	if err != nil {
		return nil, err
	}

	readDuration, err := meter.Float64Histogram(
		"kafkarest.read.duration",
		metric.WithDescription("Time from submission to completion of a read"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stepDuration, err := meter.Float64Histogram(
		"kafkarest.read.step.duration",
		metric.WithDescription("Time per partial read step"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	backoffs, err := meter.Int64Counter(
		"kafkarest.read.backoffs",
		metric.WithDescription("Partial steps that found no data ready"),
	)
	if err != nil {
		return nil, err
	}

	messagesConsumed, err := meter.Int64Counter(
		"messaging.consumer.messages",
		metric.WithDescription("Records consumed"),
	)
	if err != nil {
		return nil, err
	}

	bytesConsumed, err := meter.Int64Counter(
		"kafkarest.read.bytes",
		metric.WithDescription("Key and value bytes consumed"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	errors, err := meter.Int64Counter(
		"kafkarest.read.errors",
		metric.WithDescription("Partial steps that failed unexpectedly"),
	)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Tracer:           tracer,
		Propagator:       prop,
		ReadsSubmitted:   readsSubmitted,
		ReadsActive:      readsActive,
		ReadDuration:     readDuration,
		StepDuration:     stepDuration,
		Backoffs:         backoffs,
		MessagesConsumed: messagesConsumed,
		BytesConsumed:    bytesConsumed,
		Errors:           errors,
	}, nil
}

// Noop returns a Telemetry instance with all noop instruments
func Noop() *Telemetry {
	t, _ := NewTelemetry(nil, nil, nil)
	return t
}
