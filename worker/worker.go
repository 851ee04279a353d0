// Package worker multiplexes many bounded topic reads onto a single
// goroutine. Each read runs in short partial steps; reads that find no data
// sleep until their backoff deadline instead of occupying the loop.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hugolhafner/go-kafka-rest/clock"
	"github.com/hugolhafner/go-kafka-rest/consumer"
	"github.com/hugolhafner/go-kafka-rest/logger"
)

type Worker struct {
	config Config
	logger logger.Logger

	// mu guards both queues and stopping
	mu       sync.Mutex
	ready    readyQueue
	waiting  deadlineQueue
	stopping bool

	wake      chan struct{}
	running   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
	started   chan struct{}
	doneCh    chan struct{}
}

func New(opts ...Option) *Worker {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &Worker{
		config:  config,
		logger:  config.Logger.With("component", "read-worker"),
		wake:    make(chan struct{}, 1),
		started: make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start launches the worker goroutine. Calling it more than once is a no-op.
func (w *Worker) Start() {
	w.startOnce.Do(
		func() {
			w.running.Store(true)
			close(w.started)
			go w.run()
		},
	)
}

// Submit schedules a read of up to maxBytes from topic for session. cb, if
// not nil, is called exactly once with the result. The read may complete
// before Submit returns, e.g. for an unknown topic.
func (w *Worker) Submit(
	ctx context.Context, session Session, topic string, maxBytes int64, cb ReadCallback,
) *Handle {
	w.mu.Lock()
	stopping := w.stopping
	w.mu.Unlock()

	if stopping {
		w.logger.Warn("Read submitted after shutdown, completing empty", "topic", topic, "session", session.ID())
		h := newHandle()
		records := make([]consumer.Record, 0)
		if cb != nil {
			cb(records)
		}
		h.complete(records)
		return h
	}

	w.logger.Debug("Reading topic", "topic", topic, "session", session.ID(), "max_bytes", maxBytes)

	t := newReadTask(ctx, w, session, topic, maxBytes, cb)
	if t.finished {
		return t.handle
	}

	w.mu.Lock()
	w.ready.push(t)
	w.mu.Unlock()
	w.signal()

	return t.handle
}

// Pending returns how many reads are ready to run and how many are waiting
// on a backoff deadline.
func (w *Worker) Pending() (ready, waiting int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.ready.len(), w.waiting.len()
}

// Shutdown stops the loop after its current step and blocks until it has
// exited. Reads still queued are never completed.
func (w *Worker) Shutdown() {
	_ = w.ShutdownContext(context.Background())
}

// ShutdownContext is Shutdown, giving up waiting when ctx ends. The loop
// still stops on its own.
func (w *Worker) ShutdownContext(ctx context.Context) error {
	w.stopOnce.Do(
		func() {
			w.mu.Lock()
			w.stopping = true
			w.mu.Unlock()

			w.running.Store(false)
			w.signal()
		},
	)

	select {
	case <-w.started:
	default:
		// never started, nothing to wait for
		return nil
	}

	select {
	case <-w.doneCh:
		return nil
	case <-ctx.Done():
		w.logger.Error("Interrupted while waiting for read worker to stop", "error", ctx.Err())
		return ctx.Err()
	}
}

func (w *Worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) run() {
	defer close(w.doneCh)

	w.logger.Info("Read worker started")

	for w.running.Load() {
		t := w.next()
		if t == nil {
			continue
		}

		backoff := t.step()
		if t.finished {
			continue
		}

		w.mu.Lock()
		if backoff {
			w.waiting.push(t)
		} else {
			w.ready.push(t)
		}
		w.mu.Unlock()
	}

	ready, waiting := w.Pending()
	w.logger.Info("Read worker stopped", "abandoned_ready", ready, "abandoned_waiting", waiting)
}

// next sleeps while nothing is runnable, then moves every due read into the
// ready queue and dequeues its head. It returns nil if woken with nothing to
// run.
func (w *Worker) next() *readTask {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ready.len() == 0 {
		// Any token left here belongs to a read already taken from ready.
		select {
		case <-w.wake:
		default:
		}
		// Shutdown clears running before signalling, so its token may be
		// the one just drained.
		if !w.running.Load() {
			return nil
		}

		now := w.config.Clock.Now()
		if head, ok := w.waiting.peek(); !ok {
			w.waitLocked(clock.Forever)
		} else if d := head.waitExpiration.Sub(now); d > 0 {
			w.waitLocked(d)
		}

		if !w.running.Load() {
			return nil
		}
	}

	now := w.config.Clock.Now()
	for {
		t, ok := w.waiting.popDue(now)
		if !ok {
			break
		}
		w.ready.push(t)
	}

	return w.ready.pop()
}

// waitLocked releases mu for the duration of the wait.
func (w *Worker) waitLocked(d time.Duration) {
	w.mu.Unlock()
	defer w.mu.Lock()

	w.config.Clock.WaitOn(w.wake, d)
}
