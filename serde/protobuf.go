package serde

import (
	"google.golang.org/protobuf/proto"
)

type protobufFormat[T proto.Message] struct{}

// Protobuf accepts payloads that unmarshal into the message type T.
func Protobuf[T proto.Message]() Deserialiser[T] {
	return protobufFormat[T]{}
}

func (f protobufFormat[T]) Deserialise(_ string, data []byte) (T, error) {
	var zero T
	result := zero.ProtoReflect().Type().New().Interface().(T)
	if err := proto.Unmarshal(data, result); err != nil {
		return zero, err
	}
	return result, nil
}
