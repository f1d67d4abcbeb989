package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/sentinel/internal/domain/model"
)

const uniqueViolation = "23505"

// PgxPool is the subset of *pgxpool.Pool the store uses.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore keeps scored events in one table with the full document in
// a jsonb column and the queried fields broken out.
type PostgresStore struct {
	pool  PgxPool
	name  string
	table string
}

// OpenPostgres connects to dsn and creates the table when missing.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	o := newOptions(opts)
	conf, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	conf.ConnConfig.ConnectTimeout = o.timeout
	conf.ConnConfig.RuntimeParams["application_name"] = "sentinel"

	pool, err := pgxpool.NewWithConfig(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := NewPostgresStore(pool, o.collection)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing pool. table defaults to "events".
func NewPostgresStore(pool PgxPool, table string) *PostgresStore {
	if table == "" {
		table = defaultCollection
	}
	return &PostgresStore{pool: pool, name: table, table: pgx.Identifier{table}.Sanitize()}
}

// indexName scopes an index name to the configured table.
func (s *PostgresStore) indexName(suffix string) string {
	return pgx.Identifier{s.name + "_" + suffix}.Sanitize()
}

// Migrate creates the table and its indexes if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
	id          TEXT PRIMARY KEY,
	wallet      TEXT NOT NULL,
	fingerprint TEXT NOT NULL DEFAULT '',
	verdict     TEXT NOT NULL,
	score       INTEGER NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	document    JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS %[2]s ON %[1]s (created_at DESC);
CREATE INDEX IF NOT EXISTS %[3]s ON %[1]s (fingerprint);`, s.table, s.indexName("created_at_idx"), s.indexName("fingerprint_idx"))

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("migrate %s: %w", s.table, err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, ev *model.ScoredEvent) error {
	const op = "pgstore.Insert"
	doc, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}
	q := fmt.Sprintf(`INSERT INTO %s (id, wallet, fingerprint, verdict, score, created_at, document)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, s.table)

	_, err = s.pool.Exec(ctx, q,
		ev.ID, ev.Event.Wallet, ev.Event.Fingerprint, string(ev.Verdict), ev.Score, ev.CreatedAt, doc)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicate, ev.ID)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]model.ScoredEvent, error) {
	const op = "pgstore.Recent"
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	q := fmt.Sprintf(`SELECT document FROM %s ORDER BY created_at DESC LIMIT $1`, s.table)

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]model.ScoredEvent, 0, limit)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		var ev model.ScoredEvent
		if err := json.Unmarshal(doc, &ev); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *PostgresStore) CountByFingerprint(ctx context.Context, fp string) (int64, error) {
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE fingerprint = $1`, s.table)
	var n int64
	if err := s.pool.QueryRow(ctx, q, fp).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgstore.CountByFingerprint: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Backend() string { return BackendPostgres }

func (s *PostgresStore) Close(context.Context) error {
	s.pool.Close()
	return nil
}
