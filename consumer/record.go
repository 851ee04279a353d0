package consumer

import (
	"github.com/hugolhafner/go-kafka-rest/kafka"
)

// Record is one consumed message as returned to a client. Key and Value may
// be nil.
type Record struct {
	Key       []byte
	Value     []byte
	Partition int32
	Offset    int64
}

func NewRecord(r kafka.ConsumerRecord) Record {
	return Record{
		Key:       r.Key,
		Value:     r.Value,
		Partition: r.Partition,
		Offset:    r.Offset,
	}
}

// Size is the number of bytes the record counts against a response budget.
func (r Record) Size() int64 {
	return int64(len(r.Key) + len(r.Value))
}
