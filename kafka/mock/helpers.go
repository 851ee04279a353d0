package mockkafka

import (
	"bytes"
	"time"

	"github.com/hugolhafner/go-kafka-rest/kafka"
)

// RecordBuilder provides a fluent interface for building ConsumerRecords.
type RecordBuilder struct {
	record kafka.ConsumerRecord
}

// Record creates a new RecordBuilder with the given key and value.
func Record(key, value string) *RecordBuilder {
	return RecordBytes([]byte(key), []byte(value))
}

// RecordBytes creates a new RecordBuilder with byte slices for key and value.
func RecordBytes(key, value []byte) *RecordBuilder {
	return &RecordBuilder{
		record: kafka.ConsumerRecord{
			Key:       key,
			Value:     value,
			Timestamp: time.Now(),
		},
	}
}

// WithHeader adds a header to the record.
func (b *RecordBuilder) WithHeader(key string, value []byte) *RecordBuilder {
	b.record.Headers = append(b.record.Headers, kafka.Header{Key: key, Value: value})
	return b
}

// WithTimestamp sets the record's timestamp.
func (b *RecordBuilder) WithTimestamp(ts time.Time) *RecordBuilder {
	b.record.Timestamp = ts
	return b
}

// Build returns the constructed ConsumerRecord.
func (b *RecordBuilder) Build() kafka.ConsumerRecord {
	return b.record
}

// SimpleRecord creates a ConsumerRecord with just key and value.
func SimpleRecord(key, value string) kafka.ConsumerRecord {
	return Record(key, value).Build()
}

// SizedRecord creates a keyless record whose value is n bytes long.
func SizedRecord(n int) kafka.ConsumerRecord {
	return RecordBytes(nil, bytes.Repeat([]byte("x"), n)).Build()
}

// SizedRecords creates count keyless records of n bytes each.
func SizedRecords(count, n int) []kafka.ConsumerRecord {
	records := make([]kafka.ConsumerRecord, count)
	for i := range records {
		records[i] = SizedRecord(n)
	}
	return records
}
