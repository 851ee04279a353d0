package consumer

import (
	"maps"
	"sync"
	"sync/atomic"

	"github.com/hugolhafner/go-kafka-rest/kafka"
)

// TopicState is the read cursor of one topic within one session, plus the
// last consumed offset of every partition seen on it. Only the holder of the
// read lock may advance the stream.
type TopicState struct {
	topic  string
	stream kafka.Stream

	reading atomic.Bool

	mu              sync.Mutex
	consumedOffsets map[int32]int64
}

func NewTopicState(topic string, stream kafka.Stream) *TopicState {
	return &TopicState{
		topic:           topic,
		stream:          stream,
		consumedOffsets: make(map[int32]int64),
	}
}

func (t *TopicState) Topic() string {
	return t.topic
}

func (t *TopicState) Stream() kafka.Stream {
	return t.stream
}

// Reading reports whether a read currently holds this topic.
func (t *TopicState) Reading() bool {
	return t.reading.Load()
}

func (t *TopicState) MarkConsumed(partition int32, offset int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.consumedOffsets[partition] = offset
}

// ConsumedOffsets returns a snapshot of partition to last consumed offset.
func (t *TopicState) ConsumedOffsets() map[int32]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return maps.Clone(t.consumedOffsets)
}
