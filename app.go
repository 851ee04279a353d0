// Package kafkarest serves bounded "read up to N bytes from a topic" requests
// for consumer sessions. Reads are multiplexed onto a small, fixed pool of
// workers; every read of a session runs on the worker it was assigned at
// creation.
package kafkarest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hugolhafner/go-kafka-rest/consumer"
	"github.com/hugolhafner/go-kafka-rest/kafka"
	"github.com/hugolhafner/go-kafka-rest/logger"
	"github.com/hugolhafner/go-kafka-rest/worker"
)

const Version = "v0.1.0" // x-release-please-version

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrClosed          = errors.New("application is closed")
)

type session struct {
	state  *consumer.State
	worker *worker.Worker
}

type Application struct {
	client kafka.Client
	config Config
	logger logger.Logger

	workers []*worker.Worker

	mu         sync.RWMutex
	sessions   map[string]*session
	nextWorker int
	closed     bool
	closeOnce  sync.Once
}

func NewApplication(client kafka.Client, opts ...ConfigOption) (*Application, error) {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return NewApplicationWithConfig(client, config)
}

// NewApplicationWithConfig starts config.Workers workers. The client stays
// owned by the caller and is not closed by Close.
func NewApplicationWithConfig(client kafka.Client, config Config) (*Application, error) {
	if config.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", config.Workers)
	}
	if config.Logger == nil {
		config.Logger = logger.NewNoopLogger()
	}

	a := &Application{
		client:   client,
		config:   config,
		logger:   config.Logger.With("component", "application"),
		workers:  make([]*worker.Worker, config.Workers),
		sessions: make(map[string]*session),
	}

	base := []worker.Option{worker.WithLogger(config.Logger)}
	if config.Telemetry != nil {
		base = append(base, worker.WithTelemetry(config.Telemetry))
	}

	for i := range a.workers {
		w := worker.New(append(base, config.WorkerOptions...)...)
		w.Start()
		a.workers[i] = w
	}

	a.logger.Info("Application started", "workers", config.Workers, "version", Version)
	return a, nil
}

// CreateSession joins group with a new consumer and returns the session id.
func (a *Application) CreateSession(group string, opts ...consumer.Option) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return "", ErrClosed
	}

	c, err := a.client.NewConsumer(group)
	if err != nil {
		return "", fmt.Errorf("failed to create consumer for group %s: %w", group, err)
	}

	opts = append([]consumer.Option{consumer.WithLogger(a.config.Logger)}, opts...)
	state := consumer.NewState(group, c, opts...)

	w := a.workers[a.nextWorker%len(a.workers)]
	a.nextWorker++

	a.sessions[state.ID()] = &session{state: state, worker: w}
	a.logger.Info("Created session", "session", state.ID(), "group", group)

	return state.ID(), nil
}

// ReadTopicAsync submits a read for session id to its worker. cb may be nil.
func (a *Application) ReadTopicAsync(
	ctx context.Context, id, topic string, maxBytes int64, cb worker.ReadCallback,
) (*worker.Handle, error) {
	s, err := a.session(id)
	if err != nil {
		return nil, err
	}

	return s.worker.Submit(ctx, s.state, topic, maxBytes, cb), nil
}

// ReadTopic reads up to maxBytes from topic for session id, blocking until
// the read completes or ctx ends. A read abandoned through ctx keeps running
// on its worker until its own timeout.
func (a *Application) ReadTopic(ctx context.Context, id, topic string, maxBytes int64) ([]consumer.Record, error) {
	h, err := a.ReadTopicAsync(ctx, id, topic, maxBytes, nil)
	if err != nil {
		return nil, err
	}

	return h.WaitContext(ctx)
}

// ConsumedOffsets returns the last offset consumed per partition of topic.
func (a *Application) ConsumedOffsets(id, topic string) (map[int32]int64, error) {
	s, err := a.session(id)
	if err != nil {
		return nil, err
	}

	return s.state.ConsumedOffsets(topic), nil
}

// DeleteSession closes the session's consumer. Reads still running for it
// finish with what they have.
func (a *Application) DeleteSession(id string) error {
	a.mu.Lock()
	s, ok := a.sessions[id]
	if ok {
		delete(a.sessions, id)
	}
	a.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	s.state.Close()
	a.logger.Info("Deleted session", "session", id)
	return nil
}

// Close stops every worker, then closes all sessions. Reads still queued are
// abandoned.
func (a *Application) Close() {
	a.closeOnce.Do(
		func() {
			a.mu.Lock()
			a.closed = true
			sessions := a.sessions
			a.sessions = make(map[string]*session)
			a.mu.Unlock()

			for _, w := range a.workers {
				w.Shutdown()
			}

			for _, s := range sessions {
				s.state.Close()
			}

			a.logger.Info("Application closed", "sessions", len(sessions))
		},
	)
}

func (a *Application) session(id string) (*session, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return nil, ErrClosed
	}

	s, ok := a.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	return s, nil
}
