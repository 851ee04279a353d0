//go:build unit

package worker_test

import (
	"context"
	"testing"
	"time"

	mockclock "github.com/hugolhafner/go-kafka-rest/clock/mock"
	mockkafka "github.com/hugolhafner/go-kafka-rest/kafka/mock"
	restotel "github.com/hugolhafner/go-kafka-rest/otel"
	"github.com/hugolhafner/go-kafka-rest/worker"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

func setupOtelTest(t *testing.T) (*tracetest.InMemoryExporter, *sdkmetric.ManualReader, *restotel.Telemetry) {
	t.Helper()

	spanExporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(spanExporter),
	)

	metricReader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(metricReader),
	)

	tel, err := restotel.NewTelemetry(tp, mp, propagation.TraceContext{})
	require.NoError(t, err)

	t.Cleanup(
		func() {
			_ = tp.Shutdown(context.Background())
			_ = mp.Shutdown(context.Background())
		},
	)

	return spanExporter, metricReader, tel
}

func sumInt64(rm metricdata.ResourceMetrics, name string) (int64, bool) {
	var total int64
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				found = true
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total, found
}

func histogramCount(rm metricdata.ResourceMetrics, name string) uint64 {
	var count uint64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if h, ok := m.Data.(metricdata.Histogram[float64]); ok {
				for _, dp := range h.DataPoints {
					count += dp.Count
				}
			}
		}
	}
	return count
}

func TestWorker_OTel_ReadSpanAndMetrics(t *testing.T) {
	spanExporter, metricReader, tel := setupOtelTest(t)

	client := mockkafka.NewClient()
	client.AddRecords(
		"orders", 0,
		mockkafka.Record("k1", "v1").
			WithHeader("traceparent", []byte("00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")).
			Build(),
		mockkafka.SimpleRecord("k2", "v2"),
	)
	session := newSession(t, client)

	w := worker.New(
		worker.WithTelemetry(tel),
		worker.WithClock(mockclock.New()),
		worker.WithRequestTimeout(100*time.Millisecond),
		worker.WithBackoffInterval(50*time.Millisecond),
	)
	h := w.Submit(context.Background(), session, "orders", 1024, nil)
	w.Start()

	records, err := h.WaitTimeout(waitFor)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// the span and metrics are finished by the time the loop has stopped
	w.Shutdown()

	spans := spanExporter.GetSpans()
	require.Len(t, spans, 1)

	span := spans[0]
	require.Equal(t, "orders receive", span.Name)
	require.Len(t, span.Links, 1)
	require.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", span.Links[0].SpanContext.TraceID().String())

	attrs := make(map[string]string)
	for _, kv := range span.Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	require.Equal(t, restotel.OutcomeTimeout, attrs[string(restotel.AttrReadOutcome)])
	require.Equal(t, session.ID(), attrs[string(restotel.AttrSession)])
	require.Equal(t, "2", attrs[string(semconv.MessagingBatchMessageCountKey)])
	require.Equal(t, "orders", attrs[string(semconv.MessagingDestinationNameKey)])
	require.Equal(t, "kafka", attrs[string(semconv.MessagingSystemKey)])

	var rm metricdata.ResourceMetrics
	require.NoError(t, metricReader.Collect(context.Background(), &rm))

	consumed, ok := sumInt64(rm, "messaging.consumer.messages")
	require.True(t, ok)
	require.Equal(t, int64(2), consumed)

	bytesRead, ok := sumInt64(rm, "kafkarest.read.bytes")
	require.True(t, ok)
	require.Equal(t, int64(8), bytesRead)

	submitted, ok := sumInt64(rm, "kafkarest.reads.submitted")
	require.True(t, ok)
	require.Equal(t, int64(1), submitted)

	active, ok := sumInt64(rm, "kafkarest.reads.active")
	require.True(t, ok)
	require.Zero(t, active)

	backoffs, ok := sumInt64(rm, "kafkarest.read.backoffs")
	require.True(t, ok)
	require.Equal(t, int64(3), backoffs)

	require.Equal(t, uint64(1), histogramCount(rm, "kafkarest.read.duration"))
}

func TestWorker_OTel_FailedReadRecordsError(t *testing.T) {
	spanExporter, metricReader, tel := setupOtelTest(t)

	client := mockkafka.NewClient()
	client.AddTopic("orders")
	session := newSession(t, client)

	w := worker.New(worker.WithTelemetry(tel), worker.WithClock(mockclock.New()))
	first := w.Submit(context.Background(), session, "orders", 1024, nil)
	second := w.Submit(context.Background(), session, "orders", 1024, nil)
	w.Start()

	_, err := second.WaitTimeout(waitFor)
	require.NoError(t, err)
	_, err = first.WaitTimeout(waitFor)
	require.NoError(t, err)
	w.Shutdown()

	var failed int
	for _, s := range spanExporter.GetSpans() {
		if len(s.Events) > 0 {
			failed++
		}
	}
	require.Equal(t, 1, failed)

	var rm metricdata.ResourceMetrics
	require.NoError(t, metricReader.Collect(context.Background(), &rm))

	errs, ok := sumInt64(rm, "kafkarest.read.errors")
	require.True(t, ok)
	require.Equal(t, int64(1), errs)
}
