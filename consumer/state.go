// Package consumer holds per-session consumer state: which topics a session
// reads, the single-reader lock on each, and the offsets consumed so far.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hugolhafner/go-kafka-rest/kafka"
	"github.com/hugolhafner/go-kafka-rest/logger"
	"github.com/hugolhafner/go-kafka-rest/serde"
)

var (
	ErrReadInProgress = errors.New("consumer: topic read already in progress")
	ErrClosed         = errors.New("consumer: session closed")
)

type Config struct {
	KeyFormat   serde.UntypedDeserialiser
	ValueFormat serde.UntypedDeserialiser
	Logger      logger.Logger
}

type Option func(*Config)

// WithKeyFormat validates every record key before it is handed out.
func WithKeyFormat(d serde.UntypedDeserialiser) Option {
	return func(c *Config) {
		c.KeyFormat = d
	}
}

// WithValueFormat validates every record value before it is handed out.
func WithValueFormat(d serde.UntypedDeserialiser) Option {
	return func(c *Config) {
		c.ValueFormat = d
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

func defaultConfig() Config {
	return Config{
		Logger: logger.NewNoopLogger(),
	}
}

// State is one consumer session: a group member reading any number of topics.
type State struct {
	id       string
	group    string
	consumer kafka.Consumer
	config   Config
	logger   logger.Logger

	mu     sync.Mutex
	topics map[string]*TopicState
	closed bool
}

func NewState(group string, c kafka.Consumer, opts ...Option) *State {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	id := uuid.NewString()
	return &State{
		id:       id,
		group:    group,
		consumer: c,
		config:   config,
		logger:   config.Logger.With("component", "consumer", "session", id, "group", group),
		topics:   make(map[string]*TopicState),
	}
}

func (s *State) ID() string {
	return s.id
}

func (s *State) Group() string {
	return s.group
}

// TopicState returns the state for topic, subscribing on first use. A nil
// state with a nil error means the topic does not exist. The metadata lookup
// runs without holding the session lock.
func (s *State) TopicState(ctx context.Context, topic string) (*TopicState, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if ts, ok := s.topics[topic]; ok {
		s.mu.Unlock()
		return ts, nil
	}
	s.mu.Unlock()

	exists, err := s.consumer.TopicExists(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("lookup topic %s: %w", topic, err)
	}
	if !exists {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	// another caller may have subscribed during the lookup
	if ts, ok := s.topics[topic]; ok {
		return ts, nil
	}

	stream, err := s.consumer.Stream(topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	ts := NewTopicState(topic, stream)
	s.topics[topic] = ts
	s.logger.Debug("Created topic state", "topic", topic)

	return ts, nil
}

// StartRead takes the read lock on ts. It never blocks: a second reader
// gets ErrReadInProgress.
func (s *State) StartRead(ts *TopicState) error {
	if !ts.reading.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %s", ErrReadInProgress, ts.topic)
	}
	return nil
}

// FinishRead releases the read lock taken by StartRead.
func (s *State) FinishRead(ts *TopicState) {
	if !ts.reading.CompareAndSwap(true, false) {
		s.logger.Warn("FinishRead without matching StartRead", "topic", ts.topic)
	}
}

// Check runs the session's embedded formats over rec.
func (s *State) Check(rec kafka.ConsumerRecord) error {
	if d := s.config.KeyFormat; d != nil && rec.Key != nil {
		if _, err := d.Deserialise(rec.Topic, rec.Key); err != nil {
			return &serde.FormatError{
				Topic: rec.Topic, Partition: rec.Partition, Offset: rec.Offset, Field: "key", Cause: err,
			}
		}
	}

	if d := s.config.ValueFormat; d != nil && rec.Value != nil {
		if _, err := d.Deserialise(rec.Topic, rec.Value); err != nil {
			return &serde.FormatError{
				Topic: rec.Topic, Partition: rec.Partition, Offset: rec.Offset, Field: "value", Cause: err,
			}
		}
	}

	return nil
}

// ConsumedOffsets returns the offsets consumed on topic, or nil if the
// session never read it.
func (s *State) ConsumedOffsets(topic string) map[int32]int64 {
	s.mu.Lock()
	ts, ok := s.topics[topic]
	s.mu.Unlock()

	if !ok {
		return nil
	}
	return ts.ConsumedOffsets()
}

func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true
	s.consumer.Close()
	s.logger.Debug("Session closed")
}
