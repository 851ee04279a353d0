package otel

import (
	"go.opentelemetry.io/otel/attribute"
)

const (
	AttrReadOutcome = attribute.Key("kafkarest.read.outcome")
	AttrSession     = attribute.Key("kafkarest.session.id")
	AttrBackoff     = attribute.Key("kafkarest.read.backoff")
)

// Read outcome values
const (
	OutcomeUnknownTopic = "unknown_topic"
	OutcomeBudget       = "budget"
	OutcomeTimeout      = "timeout"
	OutcomeFailed       = "failed"
)
