package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS dataset_runs (
	id          UUID PRIMARY KEY,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	strategy    TEXT NOT NULL,
	fell_back   BOOLEAN NOT NULL DEFAULT false,
	samples     INTEGER NOT NULL,
	train       INTEGER NOT NULL,
	validation  INTEGER NOT NULL,
	dry_run     BOOLEAN NOT NULL DEFAULT false,
	report      JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS dataset_samples (
	id         UUID PRIMARY KEY,
	run_id     UUID NOT NULL REFERENCES dataset_runs(id) ON DELETE CASCADE,
	split      TEXT NOT NULL,
	position   INTEGER NOT NULL,
	chat_id    TEXT,
	sampled_at TIMESTAMPTZ,
	turns      INTEGER NOT NULL,
	messages   JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS dataset_samples_run_split ON dataset_samples (run_id, split, position);
`

// EnsureSchema creates the run and sample tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
