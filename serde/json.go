package serde

import "encoding/json"

type jsonFormat[T any] struct{}

// JSON accepts payloads that unmarshal into T. JSON[json.RawMessage]() only
// checks that the payload is well formed.
func JSON[T any]() Deserialiser[T] {
	return jsonFormat[T]{}
}

func (f jsonFormat[T]) Deserialise(_ string, data []byte) (T, error) {
	var result T
	err := json.Unmarshal(data, &result)
	return result, err
}
