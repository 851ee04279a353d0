package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hugolhafner/go-kafka-rest/logger"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"
)

var (
	_ Client   = (*KgoClient)(nil)
	_ Consumer = (*kgoConsumer)(nil)
	_ Stream   = (*kgoStream)(nil)
)

type KgoClientConfig struct {
	BootstrapServers  []string
	SessionTimeout    time.Duration
	HeartbeatInterval time.Duration
	// PollTimeout bounds a single fetch attempt made by Stream.Peek/Next
	// when nothing is buffered. Keep it small: the read worker is blocked
	// for this long on every empty poll.
	PollTimeout    time.Duration
	MaxPollRecords int
	ClientID       string

	// KgoOptions are appended to every consumer's options, after the ones
	// derived from this config.
	KgoOptions []kgo.Opt

	Logger logger.Logger
}

func defaultConfig() KgoClientConfig {
	return KgoClientConfig{
		BootstrapServers:  []string{"localhost:9092"},
		SessionTimeout:    45 * time.Second,
		HeartbeatInterval: 3 * time.Second,
		PollTimeout:       10 * time.Millisecond,
		MaxPollRecords:    100,
		Logger:            logger.NewNoopLogger(),
	}
}

type KgoOption func(*KgoClientConfig)

func WithBootstrapServers(servers []string) KgoOption {
	return func(cfg *KgoClientConfig) {
		cfg.BootstrapServers = servers
	}
}

func WithPollTimeout(d time.Duration) KgoOption {
	return func(cfg *KgoClientConfig) {
		if d > 0 {
			cfg.PollTimeout = d
		}
	}
}

func WithMaxPollRecords(n int) KgoOption {
	return func(cfg *KgoClientConfig) {
		if n > 0 {
			cfg.MaxPollRecords = n
		}
	}
}

func WithSessionTimeout(d time.Duration) KgoOption {
	return func(cfg *KgoClientConfig) {
		cfg.SessionTimeout = d
	}
}

func WithClientID(id string) KgoOption {
	return func(cfg *KgoClientConfig) {
		cfg.ClientID = id
	}
}

func WithKgoOptions(opts ...kgo.Opt) KgoOption {
	return func(cfg *KgoClientConfig) {
		cfg.KgoOptions = append(cfg.KgoOptions, opts...)
	}
}

func WithLogger(l logger.Logger) KgoOption {
	return func(cfg *KgoClientConfig) {
		cfg.Logger = l.With("client", "kgo")
	}
}

// KgoClient creates one franz-go group consumer per session.
type KgoClient struct {
	config KgoClientConfig
	logger logger.Logger

	mu        sync.Mutex
	consumers []*kgoConsumer
	closed    bool
}

func NewKgoClient(opts ...KgoOption) (*KgoClient, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(cfg.BootstrapServers) == 0 {
		return nil, errors.New("kgo client: no bootstrap servers")
	}

	return &KgoClient{config: cfg, logger: cfg.Logger}, nil
}

func (k *KgoClient) NewConsumer(group string) (Consumer, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil, errors.New("kgo client: closed")
	}

	l := k.logger.With("group", group)
	opts := []kgo.Opt{
		kgo.SeedBrokers(k.config.BootstrapServers...),
		kgo.ConsumerGroup(group),
		kgo.DisableAutoCommit(),
		kgo.SessionTimeout(k.config.SessionTimeout),
		kgo.HeartbeatInterval(k.config.HeartbeatInterval),
		kgo.WithLogger(newKgoLogger(l)),
	}
	if k.config.ClientID != "" {
		opts = append(opts, kgo.ClientID(k.config.ClientID))
	}
	opts = append(opts, k.config.KgoOptions...)

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kgo client for group %s: %w", group, err)
	}

	c := &kgoConsumer{
		client:   client,
		config:   k.config,
		logger:   l,
		streams:  make(map[string]*kgoStream),
		buffered: make(map[string][]ConsumerRecord),
	}
	k.consumers = append(k.consumers, c)

	return c, nil
}

func (k *KgoClient) Close() {
	k.mu.Lock()
	consumers := k.consumers
	k.consumers = nil
	k.closed = true
	k.mu.Unlock()

	for _, c := range consumers {
		c.Close()
	}
}

type kgoConsumer struct {
	client *kgo.Client
	config KgoClientConfig
	logger logger.Logger

	mu       sync.Mutex
	streams  map[string]*kgoStream
	buffered map[string][]ConsumerRecord
	closed   bool
}

func (c *kgoConsumer) TopicExists(ctx context.Context, topic string) (bool, error) {
	req := kmsg.NewPtrMetadataRequest()
	req.AllowAutoTopicCreation = false
	rt := kmsg.NewMetadataRequestTopic()
	rt.Topic = kmsg.StringPtr(topic)
	req.Topics = append(req.Topics, rt)

	resp, err := req.RequestWith(ctx, c.client)
	if err != nil {
		return false, fmt.Errorf("metadata request: %w", err)
	}

	for _, t := range resp.Topics {
		if t.Topic == nil || *t.Topic != topic {
			continue
		}

		if err := kerr.ErrorForCode(t.ErrorCode); err != nil {
			if errors.Is(err, kerr.UnknownTopicOrPartition) {
				return false, nil
			}
			return false, fmt.Errorf("metadata for %s: %w", topic, err)
		}

		return true, nil
	}

	return false, nil
}

func (c *kgoConsumer) Stream(topic string) (Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrStreamClosed
	}

	if s, ok := c.streams[topic]; ok {
		return s, nil
	}

	c.client.AddConsumeTopics(topic)
	s := &kgoStream{consumer: c, topic: topic}
	c.streams[topic] = s
	c.logger.Debug("Subscribed to topic", "topic", topic)

	return s, nil
}

func (c *kgoConsumer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	c.client.CloseAllowingRebalance()
}

// head returns the first buffered record for topic, polling once if the
// buffer is empty. Records for other topics fetched by that poll are
// buffered for their own streams.
func (c *kgoConsumer) head(topic string, consume bool) (ConsumerRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ConsumerRecord{}, ErrStreamClosed
	}

	if len(c.buffered[topic]) == 0 {
		if err := c.poll(); err != nil {
			return ConsumerRecord{}, err
		}
		if len(c.buffered[topic]) == 0 {
			return ConsumerRecord{}, ErrNoData
		}
	}

	rec := c.buffered[topic][0]
	if consume {
		c.buffered[topic] = c.buffered[topic][1:]
	}

	return rec, nil
}

func (c *kgoConsumer) poll() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.PollTimeout)
	defer cancel()

	fetches := c.client.PollRecords(ctx, c.config.MaxPollRecords)
	if fetches.IsClientClosed() {
		return ErrStreamClosed
	}

	fetches.EachRecord(
		func(r *kgo.Record) {
			c.buffered[r.Topic] = append(c.buffered[r.Topic], convertRecord(r))
		},
	)

	for _, fe := range fetches.Errors() {
		if errors.Is(fe.Err, context.DeadlineExceeded) || errors.Is(fe.Err, context.Canceled) {
			continue
		}
		return fmt.Errorf("poll %s[%d]: %w", fe.Topic, fe.Partition, fe.Err)
	}

	return nil
}

type kgoStream struct {
	consumer *kgoConsumer
	topic    string
}

func (s *kgoStream) Peek() (ConsumerRecord, error) {
	return s.consumer.head(s.topic, false)
}

func (s *kgoStream) Next() (ConsumerRecord, error) {
	return s.consumer.head(s.topic, true)
}

func convertRecord(r *kgo.Record) ConsumerRecord {
	headers := make([]Header, len(r.Headers))
	for i, h := range r.Headers {
		headers[i] = Header{Key: h.Key, Value: h.Value}
	}

	return ConsumerRecord{
		Key:       r.Key,
		Value:     r.Value,
		Headers:   headers,
		Topic:     r.Topic,
		Partition: r.Partition,
		Offset:    r.Offset,
		Timestamp: r.Timestamp,
	}
}
