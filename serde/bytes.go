package serde

var _ Deserialiser[[]byte] = bytesFormat{}

type bytesFormat struct{}

// Bytes accepts anything, including nil.
func Bytes() Deserialiser[[]byte] {
	return bytesFormat{}
}

func (f bytesFormat) Deserialise(_ string, data []byte) ([]byte, error) {
	return data, nil
}
