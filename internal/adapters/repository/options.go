package repository

import "time"

const (
	defaultDatabase   = "sentinel"
	defaultCollection = "events"
	defaultTimeout    = 10 * time.Second
)

type options struct {
	database   string
	collection string
	timeout    time.Duration
	instrument bool
}

// Option applies a configuration option to Open and the backend openers.
type Option func(*options)

// WithDatabase overrides the MongoDB database. By default the database in
// the URL is used, falling back to "sentinel".
func WithDatabase(name string) Option {
	return func(o *options) {
		if name != "" {
			o.database = name
		}
	}
}

// WithCollection sets the MongoDB collection or PostgreSQL table name.
func WithCollection(name string) Option {
	return func(o *options) {
		if name != "" {
			o.collection = name
		}
	}
}

// WithTimeout bounds connect, ping and index creation.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMetrics toggles the metrics decorator applied by Open.
func WithMetrics(enabled bool) Option {
	return func(o *options) {
		o.instrument = enabled
	}
}

func newOptions(opts []Option) options {
	o := options{
		collection: defaultCollection,
		timeout:    defaultTimeout,
		instrument: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
