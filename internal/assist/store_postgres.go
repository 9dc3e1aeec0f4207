package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// Schema is the DDL for the exchanges table.
const Schema = `
CREATE TABLE IF NOT EXISTS exchanges (
    id              BIGSERIAL PRIMARY KEY,
    topic           TEXT  NOT NULL,
    knowledge_level TEXT  NOT NULL DEFAULT '',
    subject_code    TEXT  NOT NULL DEFAULT '',
    reference       TEXT  NOT NULL DEFAULT '',
    query           JSONB NOT NULL,
    plan            JSONB NOT NULL,
    content         TEXT  NOT NULL,
    model           TEXT  NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// PostgresExchangeStore is a pgx-backed ExchangeStore.
type PostgresExchangeStore struct {
	pool *pgxpool.Pool
}

// NewPostgresExchangeStore creates a PostgreSQL-backed exchange store.
func NewPostgresExchangeStore(pool *pgxpool.Pool) (*PostgresExchangeStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresExchangeStore{pool: pool}, nil
}

func (s *PostgresExchangeStore) SaveExchange(ctx context.Context, ex Exchange) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	query, err := json.Marshal(ex.Query)
	if err != nil {
		return fmt.Errorf("marshal query: %w", err)
	}
	plan, err := json.Marshal(ex.Plan)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}

	createdAt := ex.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO exchanges (topic, knowledge_level, subject_code, reference, query, plan, content, model, created_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7, $8, $9)`,
		ex.Topic, ex.KnowledgeLevel, ex.Subject, ex.Reference,
		string(query), string(plan), ex.Content, ex.Model, createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}
	return nil
}

func (s *PostgresExchangeStore) RecentExchanges(ctx context.Context, limit int) ([]Exchange, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT topic, knowledge_level, subject_code, reference, query, plan, content, model, created_at
		 FROM exchanges
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	defer rows.Close()

	var out []Exchange
	for rows.Next() {
		var ex Exchange
		var query, plan []byte
		if err := rows.Scan(&ex.Topic, &ex.KnowledgeLevel, &ex.Subject, &ex.Reference,
			&query, &plan, &ex.Content, &ex.Model, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		if err := json.Unmarshal(query, &ex.Query); err != nil {
			return nil, fmt.Errorf("unmarshal query: %w", err)
		}
		if err := json.Unmarshal(plan, &ex.Plan); err != nil {
			return nil, fmt.Errorf("unmarshal plan: %w", err)
		}
		out = append(out, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exchanges: %w", err)
	}
	return out, nil
}
