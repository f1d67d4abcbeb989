// Package queue hands scored events from the gateway to the alert worker.
//
// Producers push to the head of a FIFO list and consumers pop from the tail.
// Every push is followed by an advisory notification on a side channel; the
// blocking pop stays the only delivery mechanism a consumer may rely on.
package queue

import (
	"context"

	"github.com/okian/sentinel/internal/domain/model"
)

// Default queue names shared with the original deployment.
const (
	DefaultKey     = "anomaly:queue"
	DefaultChannel = "anomaly:channel"
)

// Message is the payload flowing through the queue.
type Message = model.QueueMessage

// Queue is the durable handoff between gateway and worker.
type Queue interface {
	// Push appends msg and emits a best-effort notification. Only a failed
	// push is reported; notification failures are logged.
	Push(ctx context.Context, msg Message) error

	// Pop blocks until a message is available, ctx is done or the queue is
	// closed. Each message is returned to exactly one caller.
	Pop(ctx context.Context) (Message, error)

	// Requeue returns msg to the consumer end so it is popped next.
	Requeue(ctx context.Context, msg Message) error

	// Len returns the number of queued messages.
	Len(ctx context.Context) (int64, error)

	// Notifications streams advisory message ids until ctx is done.
	Notifications(ctx context.Context) <-chan string

	// Close releases the queue. Blocked Pop calls return ErrClosed.
	Close() error
}
