package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hugolhafner/go-kafka-rest/consumer"
	"github.com/hugolhafner/go-kafka-rest/kafka"
	restotel "github.com/hugolhafner/go-kafka-rest/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

// ReadCallback receives the records of a finished read, possibly none. It
// runs on the worker goroutine, or on the submitter's goroutine when the read
// finishes during Submit.
type ReadCallback func(records []consumer.Record)

// Session is the consumer state a read runs against.
type Session interface {
	ID() string
	// TopicState returns nil, nil for an unknown topic.
	TopicState(ctx context.Context, topic string) (*consumer.TopicState, error)
	StartRead(ts *consumer.TopicState) error
	FinishRead(ts *consumer.TopicState)
	Check(rec kafka.ConsumerRecord) error
}

var _ Session = (*consumer.State)(nil)

// readTask is one client read in progress. Apart from construction, only
// the worker goroutine touches it.
type readTask struct {
	w        *Worker
	session  Session
	topic    string
	callback ReadCallback
	handle   *Handle

	maxResponseBytes  int64
	started           time.Time
	requestExpiration time.Time

	// next time the task may run; recomputed after every step
	waitExpiration time.Time
	seq            uint64

	topicState    *consumer.TopicState
	stream        kafka.Stream
	locked        bool
	messages      []consumer.Record
	bytesConsumed int64
	emptyPolls    uint
	finished      bool

	ctx  context.Context
	span trace.Span
}

func newReadTask(
	ctx context.Context, w *Worker, session Session, topic string, maxBytes int64, cb ReadCallback,
) *readTask {
	cfg := w.config
	started := cfg.Clock.Now()

	t := &readTask{
		w:                 w,
		session:           session,
		topic:             topic,
		callback:          cb,
		handle:            newHandle(),
		maxResponseBytes:  max(min(maxBytes, cfg.MaxResponseBytes), 0),
		started:           started,
		requestExpiration: started.Add(cfg.RequestTimeout),
		messages:          make([]consumer.Record, 0),
	}

	t.ctx, t.span = cfg.Telemetry.Tracer.Start(
		ctx, topic+" receive",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationTypeReceive,
			semconv.MessagingDestinationName(topic),
			restotel.AttrSession.String(session.ID()),
		),
	)
	cfg.Telemetry.ReadsSubmitted.Add(t.ctx, 1, t.topicAttrs())
	cfg.Telemetry.ReadsActive.Add(t.ctx, 1, t.topicAttrs())

	ts, err := session.TopicState(ctx, topic)
	if err != nil {
		t.fail(err)
		return t
	}
	if ts == nil {
		w.logger.Debug("Unknown topic, completing read", "topic", topic, "session", session.ID())
		t.finish(restotel.OutcomeUnknownTopic)
		return t
	}

	t.topicState = ts
	return t
}

// step runs one bounded slice of the read. It reports whether the read
// found no data and should wait for its backoff before running again.
func (t *readTask) step() (backoff bool) {
	defer func() {
		if r := recover(); r != nil {
			t.fail(fmt.Errorf("panic: %v", r))
			backoff = false
		}
	}()

	cfg := t.w.config

	// the lock is taken here, on the worker, never by the submitter
	if t.stream == nil {
		if err := t.session.StartRead(t.topicState); err != nil {
			t.fail(err)
			return false
		}
		t.locked = true
		t.stream = t.topicState.Stream()
	}

	stepStart := cfg.Clock.Now()
	count, size := len(t.messages), t.bytesConsumed

	backoff, err := t.consume()
	if err != nil {
		t.fail(err)
		return false
	}

	var delay time.Duration
	if backoff {
		delay = cfg.Backoff.Next(t.emptyPolls)
		t.emptyPolls++
		cfg.Telemetry.Backoffs.Add(t.ctx, 1, t.topicAttrs())
		t.w.logger.Debug("No data ready, backing off", "topic", t.topic, "session", t.session.ID(), "delay", delay)
	} else {
		t.emptyPolls = 0
		delay = cfg.Backoff.Next(0)
	}

	// also the re-check horizon when not backing off
	t.waitExpiration = minTime(stepStart.Add(delay), t.requestExpiration)

	now := cfg.Clock.Now()
	if consumed := len(t.messages) - count; consumed > 0 {
		cfg.Telemetry.MessagesConsumed.Add(t.ctx, int64(consumed), t.topicAttrs())
		cfg.Telemetry.BytesConsumed.Add(t.ctx, t.bytesConsumed-size, t.topicAttrs())
	}
	cfg.Telemetry.StepDuration.Record(
		t.ctx, now.Sub(stepStart).Seconds(), metric.WithAttributes(
			semconv.MessagingDestinationName(t.topic),
			restotel.AttrBackoff.Bool(backoff),
		),
	)

	switch {
	case t.bytesConsumed >= t.maxResponseBytes:
		t.finish(restotel.OutcomeBudget)
	case now.Sub(t.started) >= cfg.RequestTimeout:
		t.finish(restotel.OutcomeTimeout)
	}

	return backoff
}

// consume takes records off the stream until none is ready or the next one
// would exceed the budget. A record that does not fit is left on the stream.
func (t *readTask) consume() (bool, error) {
	for {
		rec, err := t.stream.Peek()
		switch {
		case errors.Is(err, kafka.ErrNoData):
			return true, nil
		case errors.Is(err, kafka.ErrStreamClosed):
			return false, nil
		case err != nil:
			return false, fmt.Errorf("peek: %w", err)
		}

		size := rec.Size()
		if t.bytesConsumed+size > t.maxResponseBytes {
			return false, nil
		}

		if err := t.session.Check(rec); err != nil {
			return false, err
		}

		rec, err = t.stream.Next()
		if err != nil {
			return false, fmt.Errorf("advance after peek: %w", err)
		}

		t.messages = append(t.messages, consumer.NewRecord(rec))
		t.bytesConsumed += size
		t.topicState.MarkConsumed(rec.Partition, rec.Offset)

		if link, ok := t.w.config.Telemetry.ProducerLink(rec); ok {
			t.span.AddLink(link)
		}
	}
}

func (t *readTask) fail(cause error) {
	if t.finished {
		return
	}

	cfg := t.w.config
	stepErr := &StepError{Topic: t.topic, Session: t.session.ID(), Cause: cause}

	t.w.logger.Error(
		"Unexpected failure in read, completing with partial result",
		"error", cause,
		"topic", t.topic,
		"session", t.session.ID(),
		"records", len(t.messages),
	)
	t.span.RecordError(stepErr)
	t.span.SetStatus(codes.Error, stepErr.Error())
	cfg.Telemetry.Errors.Add(t.ctx, 1, t.topicAttrs())

	t.finish(restotel.OutcomeFailed)

	if cfg.OnStepError != nil {
		cfg.OnStepError(stepErr)
	}
}

// finish releases the topic lock if held, fires the callback and completes
// the handle. Later calls are no-ops.
func (t *readTask) finish(outcome string) {
	if t.finished {
		return
	}
	t.finished = true

	if t.locked {
		t.locked = false
		t.release()
	}

	cfg := t.w.config
	t.w.logger.Debug(
		"Read finished",
		"topic", t.topic,
		"session", t.session.ID(),
		"outcome", outcome,
		"records", len(t.messages),
		"bytes", t.bytesConsumed,
	)

	t.invokeCallback()
	t.handle.complete(t.messages)

	attrs := metric.WithAttributes(
		semconv.MessagingDestinationName(t.topic),
		restotel.AttrReadOutcome.String(outcome),
	)
	cfg.Telemetry.ReadsActive.Add(t.ctx, -1, t.topicAttrs())
	cfg.Telemetry.ReadDuration.Record(t.ctx, cfg.Clock.Now().Sub(t.started).Seconds(), attrs)

	t.span.SetAttributes(
		restotel.AttrReadOutcome.String(outcome),
		semconv.MessagingBatchMessageCount(len(t.messages)),
	)
	t.span.End()
}

func (t *readTask) release() {
	defer func() {
		if r := recover(); r != nil {
			t.w.logger.Error("Releasing topic read lock panicked", "panic", r, "topic", t.topic, "session", t.session.ID())
		}
	}()

	t.session.FinishRead(t.topicState)
}

func (t *readTask) invokeCallback() {
	if t.callback == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			t.w.logger.Error("Read callback panicked", "panic", r, "topic", t.topic, "session", t.session.ID())
		}
	}()

	t.callback(t.messages)
}

func (t *readTask) topicAttrs() metric.MeasurementOption {
	return metric.WithAttributes(semconv.MessagingDestinationName(t.topic))
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
