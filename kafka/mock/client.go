package mockkafka

import (
	"context"
	"errors"
	"sync"

	"github.com/hugolhafner/go-kafka-rest/kafka"
)

var (
	_ kafka.Client   = (*Client)(nil)
	_ kafka.Consumer = (*Consumer)(nil)
	_ kafka.Stream   = (*stream)(nil)
)

// Client is an in-memory cluster. Every consumer created from it sees the
// same topics, with its own read position per topic.
type Client struct {
	mu sync.RWMutex

	topics    map[string][]kafka.ConsumerRecord
	offsets   map[kafka.TopicPartition]int64
	consumers []*Consumer

	peekErr        func(topic string) error
	peekHook       func(topic string)
	topicErr       error
	lookupHook     func(topic string)
	newConsumerErr error

	closed bool
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		topics:  make(map[string][]kafka.ConsumerRecord),
		offsets: make(map[kafka.TopicPartition]int64),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// AddTopic registers an empty topic.
func (c *Client) AddTopic(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.topics[topic]; !ok {
		c.topics[topic] = nil
	}
}

// AddRecords appends records to a topic partition, creating the topic if
// needed. Offsets are assigned sequentially per partition. Records added
// after a consumer started reading become visible to it.
func (c *Client) AddRecords(topic string, partition int32, records ...kafka.ConsumerRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tp := kafka.TopicPartition{Topic: topic, Partition: partition}
	for _, r := range records {
		r.Topic = topic
		r.Partition = partition
		r.Offset = c.offsets[tp]
		c.offsets[tp]++
		c.topics[topic] = append(c.topics[topic], r)
	}

	if _, ok := c.topics[topic]; !ok {
		c.topics[topic] = nil
	}
}

func (c *Client) NewConsumer(group string) (kafka.Consumer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.New("mock client: closed")
	}

	if c.newConsumerErr != nil {
		return nil, c.newConsumerErr
	}

	consumer := &Consumer{
		client:    c,
		group:     group,
		positions: make(map[string]int),
		streams:   make(map[string]*stream),
	}
	c.consumers = append(c.consumers, consumer)

	return consumer, nil
}

// Consumers returns every consumer created so far.
func (c *Client) Consumers() []*Consumer {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Consumer, len(c.consumers))
	copy(out, c.consumers)
	return out
}

func (c *Client) Close() {
	c.mu.Lock()
	consumers := c.consumers
	c.closed = true
	c.mu.Unlock()

	for _, consumer := range consumers {
		consumer.Close()
	}
}

func (c *Client) record(topic string, pos int) (kafka.ConsumerRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	records := c.topics[topic]
	if pos >= len(records) {
		return kafka.ConsumerRecord{}, false
	}

	return records[pos], true
}

type Consumer struct {
	client *Client
	group  string

	mu        sync.Mutex
	positions map[string]int
	streams   map[string]*stream
	closed    bool
}

func (c *Consumer) Group() string {
	return c.group
}

func (c *Consumer) TopicExists(ctx context.Context, topic string) (bool, error) {
	if hook := c.client.lookupHook; hook != nil {
		hook(topic)
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	c.client.mu.RLock()
	defer c.client.mu.RUnlock()

	if c.client.topicErr != nil {
		return false, c.client.topicErr
	}

	_, ok := c.client.topics[topic]
	return ok, nil
}

func (c *Consumer) Stream(topic string) (kafka.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, kafka.ErrStreamClosed
	}

	if s, ok := c.streams[topic]; ok {
		return s, nil
	}

	s := &stream{consumer: c, topic: topic}
	c.streams[topic] = s
	return s, nil
}

// Position returns how many records of topic this consumer has consumed.
func (c *Consumer) Position(topic string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.positions[topic]
}

func (c *Consumer) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func (c *Consumer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
}

func (c *Consumer) head(topic string, consume bool) (kafka.ConsumerRecord, error) {
	if hook := c.client.peekHook; hook != nil {
		hook(topic)
	}

	if fn := c.client.peekErr; fn != nil {
		if err := fn(topic); err != nil {
			return kafka.ConsumerRecord{}, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return kafka.ConsumerRecord{}, kafka.ErrStreamClosed
	}

	pos := c.positions[topic]
	rec, ok := c.client.record(topic, pos)
	if !ok {
		return kafka.ConsumerRecord{}, kafka.ErrNoData
	}

	if consume {
		c.positions[topic] = pos + 1
	}

	return rec, nil
}

type stream struct {
	consumer *Consumer
	topic    string
}

func (s *stream) Peek() (kafka.ConsumerRecord, error) {
	return s.consumer.head(s.topic, false)
}

func (s *stream) Next() (kafka.ConsumerRecord, error) {
	return s.consumer.head(s.topic, true)
}
