// Package clock is the time source used by the read worker. It is an
// interface so tests can drive time deterministically.
package clock

import (
	"time"
)

// Forever passed to WaitOn means there is no deadline to wait for.
const Forever time.Duration = -1

type Clock interface {
	Now() time.Time

	// WaitOn blocks until wake receives or d elapses, whichever is first.
	// A negative d waits for wake only.
	WaitOn(wake <-chan struct{}, d time.Duration)
}

var _ Clock = systemClock{}

type systemClock struct{}

// System returns the wall clock.
func System() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) WaitOn(wake <-chan struct{}, d time.Duration) {
	if d < 0 {
		<-wake
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-wake:
	case <-timer.C:
	}
}
