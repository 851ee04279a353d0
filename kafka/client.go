package kafka

import (
	"context"
	"errors"
)

var (
	// ErrNoData is returned by a Stream when no record became ready within
	// its poll bound. It is transient.
	ErrNoData = errors.New("kafka: no record ready")

	// ErrStreamClosed is returned once the stream will never yield again.
	ErrStreamClosed = errors.New("kafka: stream closed")
)

// Client creates consumers, one per consumer group.
type Client interface {
	NewConsumer(group string) (Consumer, error)
	Close()
}

type Consumer interface {
	// TopicExists reports whether the topic is known to the cluster.
	TopicExists(ctx context.Context, topic string) (bool, error)

	// Stream subscribes to topic and returns its record stream. Calling it
	// again for the same topic returns the same stream.
	Stream(topic string) (Stream, error)

	Close()
}

// Stream is a cursor over a topic. Peek and Next block for at most the
// stream's short poll bound, then return ErrNoData.
type Stream interface {
	// Peek returns the next record without consuming it.
	Peek() (ConsumerRecord, error)

	// Next consumes and returns the next record.
	Next() (ConsumerRecord, error)
}
