package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/sentinel/internal/domain/model"
)

// MemoryStore keeps events in insertion order. It is meant for tests and
// local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	events []model.ScoredEvent
	ids    map[string]struct{}
	byFP   map[string]int64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ids:  make(map[string]struct{}),
		byFP: make(map[string]int64),
	}
}

func (s *MemoryStore) Insert(_ context.Context, ev *model.ScoredEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[ev.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, ev.ID)
	}
	s.ids[ev.ID] = struct{}{}
	s.events = append(s.events, *ev)
	if fp := ev.Event.Fingerprint; fp != "" {
		s.byFP[fp]++
	}
	return nil
}

// Recent returns the newest events. Events are assumed to be inserted in
// createdAt order, which holds for a single gateway.
func (s *MemoryStore) Recent(_ context.Context, limit int) ([]model.ScoredEvent, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := min(limit, len(s.events))
	out := make([]model.ScoredEvent, 0, n)
	for i := len(s.events) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

func (s *MemoryStore) CountByFingerprint(_ context.Context, fp string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byFP[fp], nil
}

func (s *MemoryStore) Backend() string { return BackendMemory }

func (s *MemoryStore) Close(context.Context) error { return nil }
