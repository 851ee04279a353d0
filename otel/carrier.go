package otel

import (
	"context"

	"github.com/hugolhafner/go-kafka-rest/kafka"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var _ propagation.TextMapCarrier = (*HeadersCarrier)(nil)

// HeadersCarrier exposes record headers to a propagator.
type HeadersCarrier struct {
	headers *[]kafka.Header
}

func NewHeadersCarrier(headers *[]kafka.Header) *HeadersCarrier {
	return &HeadersCarrier{headers: headers}
}

func (c *HeadersCarrier) Get(key string) string {
	v, _ := kafka.HeaderValue(*c.headers, key)
	return string(v)
}

// Set replaces every header named key, or appends one.
func (c *HeadersCarrier) Set(key, value string) {
	found := false
	for i := range *c.headers {
		if (*c.headers)[i].Key == key {
			(*c.headers)[i].Value = []byte(value)
			found = true
		}
	}

	if !found {
		*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
	}
}

func (c *HeadersCarrier) Keys() []string {
	keys := make([]string, len(*c.headers))
	for i, h := range *c.headers {
		keys[i] = h.Key
	}
	return keys
}

// ProducerLink extracts the producer's span context from rec's headers.
// ok is false when the record carries no valid trace context.
func (t *Telemetry) ProducerLink(rec kafka.ConsumerRecord) (trace.Link, bool) {
	headers := rec.Headers
	ctx := t.Propagator.Extract(context.Background(), NewHeadersCarrier(&headers))

	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return trace.Link{}, false
	}

	return trace.Link{SpanContext: sc}, true
}
