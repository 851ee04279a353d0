package serde

type deserialiserAdapter[T any] struct {
	typed Deserialiser[T]
}

func (a deserialiserAdapter[T]) Deserialise(topic string, data []byte) (any, error) {
	return a.typed.Deserialise(topic, data)
}

func ToUntypedDeserialiser[T any](d Deserialiser[T]) UntypedDeserialiser {
	return deserialiserAdapter[T]{typed: d}
}
