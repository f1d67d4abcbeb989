package queue

import (
	"time"

	"github.com/okian/sentinel/pkg/logger"
)

const (
	defaultCapacity   = 100000
	defaultPopTimeout = time.Second
	notifyBuffer      = 64
)

type options struct {
	key        string
	channel    string
	capacity   int
	popTimeout time.Duration
	log        logger.Logger
}

// Option applies a configuration option to a queue.
type Option func(*options)

// WithKey sets the list key (Redis) used for messages.
func WithKey(key string) Option {
	return func(o *options) {
		if key != "" {
			o.key = key
		}
	}
}

// WithChannel sets the pub/sub channel used for notifications.
func WithChannel(channel string) Option {
	return func(o *options) {
		if channel != "" {
			o.channel = channel
		}
	}
}

// WithCapacity bounds the in-memory queue.
func WithCapacity(capacity int) Option {
	return func(o *options) {
		if capacity > 0 {
			o.capacity = capacity
		}
	}
}

// WithPopTimeout sets the server-side wait of one blocking pop round. Pop
// keeps issuing rounds until a message arrives, so this only bounds how
// quickly a cancelled context is noticed. Zero blocks in a single round.
func WithPopTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.popTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		key:        DefaultKey,
		channel:    DefaultChannel,
		capacity:   defaultCapacity,
		popTimeout: defaultPopTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get().Named("queue")
	}
	return o
}
