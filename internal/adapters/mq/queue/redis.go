package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/sentinel/pkg/logger"
	"github.com/okian/sentinel/pkg/metrics"
)

const dialTimeout = 5 * time.Second

// RedisQueue stores messages in a Redis list and notifies over pub/sub.
type RedisQueue struct {
	client     *redis.Client
	key        string
	channel    string
	popTimeout time.Duration
	log        logger.Logger
}

// Dial connects to redisURL, verifies the connection and returns a queue
// that owns the client.
func Dial(ctx context.Context, redisURL string, opts ...Option) (*RedisQueue, error) {
	ro, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(ro)

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisQueue(client, opts...), nil
}

// NewRedisQueue wraps an existing client. Close closes the client.
func NewRedisQueue(client *redis.Client, opts ...Option) *RedisQueue {
	o := newOptions(opts)
	return &RedisQueue{
		client:     client,
		key:        o.key,
		channel:    o.channel,
		popTimeout: o.popTimeout,
		log:        o.log,
	}
}

// Client exposes the underlying connection for components sharing it.
func (q *RedisQueue) Client() *redis.Client {
	return q.client
}

func (q *RedisQueue) Push(ctx context.Context, msg Message) error { //nolint:gocritic // hugeParam: messages are values
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message %s: %w", msg.ID, err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		metrics.RecordQueueError("push")
		return fmt.Errorf("lpush %s: %w", q.key, err)
	}
	metrics.RecordQueuePush()

	if err := q.client.Publish(ctx, q.channel, msg.ID).Err(); err != nil {
		metrics.RecordQueueError("notify")
		q.log.Warn(ctx, "queue notification failed",
			logger.String("id", msg.ID),
			logger.String("channel", q.channel),
			logger.Error(err),
		)
		return nil
	}
	metrics.RecordQueueNotification()
	return nil
}

func (q *RedisQueue) Requeue(ctx context.Context, msg Message) error { //nolint:gocritic // hugeParam: messages are values
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message %s: %w", msg.ID, err)
	}
	if err := q.client.RPush(ctx, q.key, payload).Err(); err != nil {
		metrics.RecordQueueError("requeue")
		return fmt.Errorf("rpush %s: %w", q.key, err)
	}
	return nil
}

func (q *RedisQueue) Pop(ctx context.Context) (Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}
		res, err := q.client.BRPop(ctx, q.popTimeout, q.key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case errors.Is(err, redis.ErrClosed):
			return Message{}, ErrClosed
		case err != nil:
			if ctx.Err() != nil {
				return Message{}, ctx.Err()
			}
			metrics.RecordQueueError("pop")
			return Message{}, fmt.Errorf("brpop %s: %w", q.key, err)
		}
		metrics.RecordQueuePop()

		// BRPOP replies with [key, value].
		var msg Message
		if len(res) != 2 {
			return Message{}, fmt.Errorf("%w: unexpected reply of %d elements", ErrMalformed, len(res))
		}
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			return Message{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return msg, nil
	}
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen %s: %w", q.key, err)
	}
	metrics.UpdateQueueLength(n)
	return n, nil
}

func (q *RedisQueue) Notifications(ctx context.Context) <-chan string {
	out := make(chan string, notifyBuffer)
	sub := q.client.Subscribe(ctx, q.channel)

	go func() {
		defer close(out)
		defer sub.Close()
		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- m.Payload:
				default:
				}
			}
		}
	}()
	return out
}

func (q *RedisQueue) Close() error {
	if err := q.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}
