package worker

import (
	"context"
	"time"

	"github.com/hugolhafner/go-kafka-rest/consumer"
)

// Handle is the caller's view of a submitted read.
type Handle struct {
	done    chan struct{}
	records []consumer.Record
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// complete must be called exactly once.
func (h *Handle) complete(records []consumer.Record) {
	h.records = records
	close(h.done)
}

// Done is closed once the read has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) IsDone() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the read finishes and returns its records.
func (h *Handle) Wait() []consumer.Record {
	<-h.done
	return h.records
}

// WaitTimeout waits at most d for the read. It returns ErrTimeout if the read
// is still running.
func (h *Handle) WaitTimeout(d time.Duration) ([]consumer.Record, error) {
	if h.IsDone() {
		return h.records, nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-h.done:
		return h.records, nil
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// WaitContext waits for the read or for ctx, whichever ends first.
func (h *Handle) WaitContext(ctx context.Context) ([]consumer.Record, error) {
	select {
	case <-h.done:
		return h.records, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
