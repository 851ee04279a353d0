package worker

import (
	"time"

	"github.com/hugolhafner/dskit/backoff"
	"github.com/hugolhafner/go-kafka-rest/clock"
	"github.com/hugolhafner/go-kafka-rest/logger"
	"github.com/hugolhafner/go-kafka-rest/otel"
)

type Config struct {
	// MaxResponseBytes caps the maxBytes any single read may ask for.
	MaxResponseBytes int64

	// RequestTimeout is how long a read may run before it completes with
	// whatever it has accumulated.
	RequestTimeout time.Duration

	// Backoff gives the delay before retrying a read that found no data. It
	// is called with the number of consecutive empty polls before this one.
	Backoff backoff.Backoff

	Clock       clock.Clock
	Logger      logger.Logger
	Telemetry   *otel.Telemetry
	OnStepError func(*StepError)
}

type Option func(*Config)

func WithMaxResponseBytes(n int64) Option {
	return func(c *Config) {
		if n >= 0 {
			c.MaxResponseBytes = n
		}
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.RequestTimeout = d
		}
	}
}

// WithBackoffInterval sets a fixed delay between empty polls.
func WithBackoffInterval(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.Backoff = backoff.NewFixed(d)
		}
	}
}

func WithBackoff(b backoff.Backoff) Option {
	return func(c *Config) {
		if b != nil {
			c.Backoff = b
		}
	}
}

func WithClock(cl clock.Clock) Option {
	return func(c *Config) {
		if cl != nil {
			c.Clock = cl
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

func WithTelemetry(t *otel.Telemetry) Option {
	return func(c *Config) {
		if t != nil {
			c.Telemetry = t
		}
	}
}

// WithStepErrorHook is called on the worker goroutine for every read that
// fails unexpectedly, after it has been finished.
func WithStepErrorHook(fn func(*StepError)) Option {
	return func(c *Config) {
		c.OnStepError = fn
	}
}

func defaultConfig() Config {
	return Config{
		MaxResponseBytes: 64 * 1024 * 1024,
		RequestTimeout:   time.Second,
		Backoff:          backoff.NewFixed(50 * time.Millisecond),
		Clock:            clock.System(),
		Logger:           logger.NewNoopLogger(),
		Telemetry:        otel.Noop(),
	}
}
