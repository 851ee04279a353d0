package mockkafka

// Option is a functional option for configuring a mock Client.
type Option func(*Client)

// WithPeekError makes every Peek/Next on topic return the error fn gives,
// when it is non-nil.
func WithPeekError(fn func(topic string) error) Option {
	return func(c *Client) {
		c.peekErr = fn
	}
}

// WithPeekHook runs fn before every Peek/Next. Useful for advancing a mock
// clock to model the stream's poll bound.
func WithPeekHook(fn func(topic string)) Option {
	return func(c *Client) {
		c.peekHook = fn
	}
}

// WithTopicError configures an error to be returned by all TopicExists calls.
func WithTopicError(err error) Option {
	return func(c *Client) {
		c.topicErr = err
	}
}

// WithTopicLookupHook runs fn at the start of every TopicExists, before any
// lock is taken. Useful for holding a lookup in flight.
func WithTopicLookupHook(fn func(topic string)) Option {
	return func(c *Client) {
		c.lookupHook = fn
	}
}

// WithNewConsumerError configures an error to be returned by NewConsumer.
func WithNewConsumerError(err error) Option {
	return func(c *Client) {
		c.newConsumerErr = err
	}
}
