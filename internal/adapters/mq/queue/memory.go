package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/sentinel/pkg/logger"
	"github.com/okian/sentinel/pkg/metrics"
)

// InMemoryQueue is a bounded in-process Queue for tests and local runs.
type InMemoryQueue struct {
	mu       sync.Mutex
	items    []Message // index 0 is the consumer end
	ready    chan struct{}
	closed   chan struct{}
	subs     map[chan string]struct{}
	capacity int
	log      logger.Logger
	once     sync.Once
}

// NewInMemoryQueue creates an empty queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	o := newOptions(opts)
	return &InMemoryQueue{
		ready:    make(chan struct{}),
		closed:   make(chan struct{}),
		subs:     make(map[chan string]struct{}),
		capacity: o.capacity,
		log:      o.log,
	}
}

func (q *InMemoryQueue) Push(ctx context.Context, msg Message) error { //nolint:gocritic // hugeParam: messages are values
	if err := q.insert(msg, false); err != nil {
		metrics.RecordQueueError("push")
		return err
	}
	metrics.RecordQueuePush()
	q.publish(msg.ID)
	return nil
}

func (q *InMemoryQueue) Requeue(_ context.Context, msg Message) error { //nolint:gocritic // hugeParam: messages are values
	if err := q.insert(msg, true); err != nil {
		metrics.RecordQueueError("requeue")
		return err
	}
	return nil
}

func (q *InMemoryQueue) insert(msg Message, front bool) error { //nolint:gocritic // hugeParam: messages are values
	q.mu.Lock()
	defer q.mu.Unlock()

	select {
	case <-q.closed:
		return ErrClosed
	default:
	}
	if !front && len(q.items) >= q.capacity {
		return fmt.Errorf("%w: capacity %d", ErrFull, q.capacity)
	}
	if front {
		q.items = append([]Message{msg}, q.items...)
	} else {
		q.items = append(q.items, msg)
	}
	metrics.UpdateQueueLength(int64(len(q.items)))

	// wake every blocked Pop; losers go back to waiting
	close(q.ready)
	q.ready = make(chan struct{})
	return nil
}

func (q *InMemoryQueue) Pop(ctx context.Context) (Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}
		q.mu.Lock()
		if len(q.items) > 0 {
			msg := q.items[0]
			q.items[0] = Message{}
			q.items = q.items[1:]
			metrics.UpdateQueueLength(int64(len(q.items)))
			q.mu.Unlock()
			metrics.RecordQueuePop()
			return msg, nil
		}
		ready := q.ready
		q.mu.Unlock()

		select {
		case <-ready:
		case <-q.closed:
			return Message{}, ErrClosed
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}
	}
}

func (q *InMemoryQueue) Len(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.items)), nil
}

func (q *InMemoryQueue) Notifications(ctx context.Context) <-chan string {
	ch := make(chan string, notifyBuffer)
	q.mu.Lock()
	q.subs[ch] = struct{}{}
	q.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-q.closed:
		}
		q.mu.Lock()
		delete(q.subs, ch)
		q.mu.Unlock()
		close(ch)
	}()
	return ch
}

func (q *InMemoryQueue) publish(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for ch := range q.subs {
		select {
		case ch <- id:
			metrics.RecordQueueNotification()
		default:
			q.log.Debug(context.Background(), "notification dropped, subscriber is slow", logger.String("id", id))
		}
	}
}

func (q *InMemoryQueue) Close() error {
	q.once.Do(func() { close(q.closed) })
	return nil
}
