package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// Schema is the DDL for the progress tables. The composite primary key is
// what makes Add idempotent server-side.
const Schema = `
CREATE TABLE IF NOT EXISTS progress_records (
    subject_code TEXT    NOT NULL,
    unit_number  INTEGER NOT NULL,
    topic_index  INTEGER NOT NULL,
    completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (subject_code, unit_number, topic_index)
);

CREATE TABLE IF NOT EXISTS activity_events (
    id         BIGSERIAL PRIMARY KEY,
    event_type TEXT  NOT NULL,
    data       JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// PostgresStore is a pgx-backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed progress store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Add(ctx context.Context, r Record) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO progress_records (subject_code, unit_number, topic_index)
		 VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING`,
		r.SubjectCode, r.UnitNumber, r.TopicIndex,
	)
	if err != nil {
		return fmt.Errorf("insert progress record: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsCompleted(ctx context.Context, r Record) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM progress_records
		   WHERE subject_code = $1 AND unit_number = $2 AND topic_index = $3
		 )`,
		r.SubjectCode, r.UnitNumber, r.TopicIndex,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check progress record: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]CompletedRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT subject_code, unit_number, topic_index, completed_at
		 FROM progress_records
		 ORDER BY subject_code, unit_number, topic_index`,
	)
	if err != nil {
		return nil, fmt.Errorf("query progress records: %w", err)
	}
	defer rows.Close()

	var out []CompletedRecord
	for rows.Next() {
		var rec CompletedRecord
		if err := rows.Scan(&rec.SubjectCode, &rec.UnitNumber, &rec.TopicIndex, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan progress record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress records: %w", err)
	}
	return out, nil
}
