// Package repository persists scored events as an append-only audit trail.
//
// Backends are selected by URL scheme: mongodb:// and mongodb+srv:// use
// MongoDB, postgres:// and postgresql:// use PostgreSQL, memory:// keeps
// everything in process.
package repository

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/okian/sentinel/internal/domain/model"
	"github.com/okian/sentinel/pkg/metrics"
)

// Backend names.
const (
	BackendMongo    = "mongodb"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Store is the Event Store. Inserted events are never updated.
type Store interface {
	// Insert appends ev. Inserting an id twice fails with ErrDuplicate.
	Insert(ctx context.Context, ev *model.ScoredEvent) error

	// Recent returns up to limit events, newest first.
	Recent(ctx context.Context, limit int) ([]model.ScoredEvent, error)

	// CountByFingerprint counts persisted events carrying fp. An unseen
	// fingerprint yields 0.
	CountByFingerprint(ctx context.Context, fp string) (int64, error)

	// Backend names the storage engine.
	Backend() string

	Close(ctx context.Context) error
}

// Open connects to the backend named by rawURL's scheme.
func Open(ctx context.Context, rawURL string, opts ...Option) (Store, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse store url: %w", err)
	}
	o := newOptions(opts)

	var s Store
	switch strings.ToLower(u.Scheme) {
	case "mongodb", "mongodb+srv":
		s, err = OpenMongo(ctx, rawURL, opts...)
	case "postgres", "postgresql":
		s, err = OpenPostgres(ctx, rawURL, opts...)
	case "memory", "":
		s = NewMemoryStore()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if err != nil {
		return nil, err
	}
	if !o.instrument {
		return s, nil
	}
	return Instrument(s), nil
}

// Instrument wraps s so every call is recorded in metrics.
func Instrument(s Store) Store {
	return &instrumented{Store: s}
}

type instrumented struct {
	Store
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStoreOperation(op, err, float64(time.Since(start).Milliseconds()))
}

func (s *instrumented) Insert(ctx context.Context, ev *model.ScoredEvent) (err error) {
	defer func(start time.Time) { observe("insert", start, err) }(time.Now())
	return s.Store.Insert(ctx, ev)
}

func (s *instrumented) Recent(ctx context.Context, limit int) (out []model.ScoredEvent, err error) {
	defer func(start time.Time) { observe("recent", start, err) }(time.Now())
	return s.Store.Recent(ctx, limit)
}

func (s *instrumented) CountByFingerprint(ctx context.Context, fp string) (n int64, err error) {
	defer func(start time.Time) { observe("count_fingerprint", start, err) }(time.Now())
	return s.Store.CountByFingerprint(ctx, fp)
}
