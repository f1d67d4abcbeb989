package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/okian/sentinel/internal/domain/model"
	"github.com/okian/sentinel/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func message(id string, verdict model.Verdict) Message {
	return Message{
		ID:        id,
		Subject:   "0xabc",
		Verdict:   verdict,
		Score:     75,
		CreatedAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		Event:     model.RawEvent{Wallet: "0xabc", Action: model.ActionSwap},
	}
}

func TestInMemoryQueue_FIFO(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if err := q.Push(ctx, message(fmt.Sprintf("m%d", i), model.VerdictAnomaly)); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	if n, _ := q.Len(ctx); n != 3 {
		t.Errorf("expected length 3, got %d", n)
	}
	for i := 1; i <= 3; i++ {
		msg, err := q.Pop(ctx)
		if err != nil {
			t.Fatalf("pop: %v", err)
		}
		if want := fmt.Sprintf("m%d", i); msg.ID != want {
			t.Errorf("expected %s, got %s", want, msg.ID)
		}
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	_ = q.Push(ctx, message("m1", model.VerdictClear))
	_ = q.Push(ctx, message("m2", model.VerdictClear))
	if err := q.Push(ctx, message("m3", model.VerdictClear)); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
}

func TestInMemoryQueue_RequeueGoesFirst(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	_ = q.Push(ctx, message("m1", model.VerdictAnomaly))
	_ = q.Push(ctx, message("m2", model.VerdictAnomaly))
	first, _ := q.Pop(ctx)
	if err := q.Requeue(ctx, first); err != nil {
		t.Fatalf("requeue: %v", err)
	}
	again, _ := q.Pop(ctx)
	if again.ID != "m1" {
		t.Errorf("expected requeued m1 first, got %s", again.ID)
	}
}

func TestInMemoryQueue_PopBlocksUntilPush(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	got := make(chan Message, 1)
	go func() {
		msg, err := q.Pop(ctx)
		if err == nil {
			got <- msg
		}
	}()

	select {
	case <-got:
		t.Fatal("pop returned before anything was pushed")
	case <-time.After(50 * time.Millisecond):
	}

	_ = q.Push(ctx, message("late", model.VerdictAnomaly))
	select {
	case msg := <-got:
		if msg.ID != "late" {
			t.Errorf("expected late, got %s", msg.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("pop did not wake up")
	}
}

func TestInMemoryQueue_PopHonoursContextAndClose(t *testing.T) {
	q := NewInMemoryQueue()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := q.Pop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := q.Pop(context.Background())
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	_ = q.Close()
	if err := <-done; !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := q.Push(context.Background(), message("x", model.VerdictClear)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected push after close to fail, got %v", err)
	}
}

func TestInMemoryQueue_EachMessageDeliveredOnce(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const total = 200
	var (
		mu   sync.Mutex
		seen = make(map[string]int)
		wg   sync.WaitGroup
	)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				msg, err := q.Pop(ctx)
				if err != nil {
					return
				}
				mu.Lock()
				seen[msg.ID]++
				n := len(seen)
				mu.Unlock()
				if n == total {
					cancel()
				}
			}
		}()
	}
	for i := 0; i < total; i++ {
		_ = q.Push(context.Background(), message(fmt.Sprintf("m%d", i), model.VerdictClear))
	}
	wg.Wait()

	if len(seen) != total {
		t.Fatalf("expected %d distinct messages, got %d", total, len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("message %s delivered %d times", id, n)
		}
	}
}

func TestInMemoryQueue_Notifications(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())

	ch := q.Notifications(ctx)
	_ = q.Push(context.Background(), message("n1", model.VerdictAnomaly))
	select {
	case id := <-ch:
		if id != "n1" {
			t.Errorf("expected n1, got %s", id)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}

	cancel()
	for range ch {
	}
}
