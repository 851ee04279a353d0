package serde

import (
	"errors"
	"unicode/utf8"
)

var ErrInvalidUTF8 = errors.New("serde: invalid utf-8")

type stringFormat struct{}

func String() Deserialiser[string] {
	return stringFormat{}
}

func (f stringFormat) Deserialise(_ string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", ErrInvalidUTF8
	}
	return string(data), nil
}
