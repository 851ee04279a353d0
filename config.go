package kafkarest

import (
	"github.com/hugolhafner/go-kafka-rest/logger"
	"github.com/hugolhafner/go-kafka-rest/otel"
	"github.com/hugolhafner/go-kafka-rest/worker"
)

type Config struct {
	// Workers is the number of read workers. Each session is pinned to one.
	Workers int

	// WorkerOptions are applied to every worker after the application's own
	// logger and telemetry, so they take precedence.
	WorkerOptions []worker.Option

	Telemetry *otel.Telemetry
	Logger    logger.Logger
}

type ConfigOption func(*Config)

func WithWorkers(n int) ConfigOption {
	return func(c *Config) {
		c.Workers = n
	}
}

func WithWorkerOptions(opts ...worker.Option) ConfigOption {
	return func(c *Config) {
		c.WorkerOptions = append(c.WorkerOptions, opts...)
	}
}

func WithTelemetry(t *otel.Telemetry) ConfigOption {
	return func(c *Config) {
		c.Telemetry = t
	}
}

func WithLogger(logger logger.Logger) ConfigOption {
	return func(c *Config) {
		c.Logger = logger
	}
}

func defaultConfig() Config {
	return Config{
		Workers: 1,
		Logger:  logger.NewNoopLogger(),
	}
}
