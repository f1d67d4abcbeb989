// Package deadletter parks alerts whose dispatch could not be completed.
//
// Sinks are best-effort: the worker logs a sink failure and keeps draining
// the queue.
package deadletter

import (
	"context"
	"time"

	"github.com/okian/sentinel/internal/domain/model"
)

// DefaultKey is the Redis list that collects dead letters.
const DefaultKey = "anomaly:deadletter"

// Entry describes one undeliverable alert.
type Entry struct {
	Message    model.QueueMessage `json:"message"`
	Reason     string             `json:"reason"`
	Attempts   int                `json:"attempts"`
	LastStatus int                `json:"lastStatus,omitempty"`
	FailedAt   time.Time          `json:"failedAt"`
}

// Sink stores dead letters.
type Sink interface {
	Send(ctx context.Context, entry Entry) error
	// Name labels the sink in logs and metrics.
	Name() string
	Close() error
}
