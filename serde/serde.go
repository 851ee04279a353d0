// Package serde holds the embedded formats a consumer session can be created
// with. Records are handed to clients as raw bytes; a format only decides
// whether those bytes are acceptable.
package serde

import (
	"fmt"
)

type Deserialiser[T any] interface {
	Deserialise(topic string, data []byte) (T, error)
}

type UntypedDeserialiser interface {
	Deserialise(topic string, data []byte) (any, error)
}

// FormatError reports a record whose key or value could not be decoded.
type FormatError struct {
	Topic     string
	Partition int32
	Offset    int64
	Field     string
	Cause     error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("decode %s of %s[%d]@%d: %v", e.Field, e.Topic, e.Partition, e.Offset, e.Cause)
}

func (e *FormatError) Unwrap() error {
	return e.Cause
}
