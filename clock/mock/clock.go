package mockclock

import (
	"sync"
	"time"

	"github.com/hugolhafner/go-kafka-rest/clock"
)

var _ clock.Clock = (*Clock)(nil)

// Clock is a virtual clock. A bounded WaitOn advances time by the full
// duration and returns at once, so a loop sleeping until a deadline lands
// exactly on it. Unbounded waits still block until woken.
type Clock struct {
	mu       sync.Mutex
	now      time.Time
	autoTick time.Duration
	waits    []time.Duration
}

type Option func(*Clock)

// WithAutoTick advances the clock by d after every call to Now, modelling
// time spent doing work between observations.
func WithAutoTick(d time.Duration) Option {
	return func(c *Clock) {
		c.autoTick = d
	}
}

// WithStart sets the initial time. Defaults to the Unix epoch.
func WithStart(t time.Time) Option {
	return func(c *Clock) {
		c.now = t
	}
}

func New(opts ...Option) *Clock {
	c := &Clock{now: time.Unix(0, 0)}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now
	c.now = c.now.Add(c.autoTick)
	return now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// Elapsed returns the time passed since start without ticking.
func (c *Clock) Elapsed(start time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now.Sub(start)
}

func (c *Clock) WaitOn(wake <-chan struct{}, d time.Duration) {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	if d >= 0 {
		c.now = c.now.Add(d)
		c.mu.Unlock()

		// a pending wake is satisfied by this wait
		select {
		case <-wake:
		default:
		}
		return
	}
	c.mu.Unlock()

	<-wake
}

// Waits returns every duration passed to WaitOn, including Forever.
func (c *Clock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]time.Duration, len(c.waits))
	copy(out, c.waits)
	return out
}

// BoundedWaits returns the durations of waits that had a deadline.
func (c *Clock) BoundedWaits() []time.Duration {
	var out []time.Duration
	for _, d := range c.Waits() {
		if d >= 0 {
			out = append(out, d)
		}
	}

	return out
}
