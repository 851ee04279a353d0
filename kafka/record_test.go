//go:build unit

package kafka_test

import (
	"testing"

	"github.com/hugolhafner/go-kafka-rest/kafka"
	"github.com/stretchr/testify/require"
)

func TestConsumerRecord_Size(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		record kafka.ConsumerRecord
		expect int64
	}{
		{"nil key and value", kafka.ConsumerRecord{}, 0},
		{"nil key", kafka.ConsumerRecord{Value: []byte("hello")}, 5},
		{"key and value", kafka.ConsumerRecord{Key: []byte("k1"), Value: []byte("value")}, 7},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				t.Parallel()
				require.Equal(t, tt.expect, tt.record.Size())
			},
		)
	}
}

func TestTopicPartition_String(t *testing.T) {
	t.Parallel()
	tp := kafka.TopicPartition{Topic: "orders", Partition: 3}
	require.Equal(t, "orders-3", tp.String())
}

func TestHeaderValue(t *testing.T) {
	t.Parallel()
	headers := []kafka.Header{{Key: "a", Value: []byte("1")}, {Key: "a", Value: []byte("2")}}

	v, ok := kafka.HeaderValue(headers, "a")
	require.True(t, ok)
	require.Equal(t, []byte("1"), v)

	_, ok = kafka.HeaderValue(headers, "b")
	require.False(t, ok)
}
