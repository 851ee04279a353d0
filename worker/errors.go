package worker

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned by Handle.WaitTimeout when the read has not
// finished in time. The read itself carries on.
var ErrTimeout = errors.New("worker: timed out waiting for read")

// StepError is an unexpected failure while running a read. The read is
// finished with the records accumulated before the failure.
type StepError struct {
	Topic   string
	Session string
	Cause   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("read %s for session %s: %v", e.Topic, e.Session, e.Cause)
}

func (e *StepError) Unwrap() error {
	return e.Cause
}

func AsStepError(err error) (*StepError, bool) {
	var se *StepError
	if errors.As(err, &se) {
		return se, true
	}

	return nil, false
}
