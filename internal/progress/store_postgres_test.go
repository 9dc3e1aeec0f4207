package progress_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/drillbook/drillbook/internal/progress"
)

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("drillbook"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("connect pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, progress.Schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return pool
}

func TestPostgresStore_AddIdempotent(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()

	store, err := progress.NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}

	rec := progress.Record{SubjectCode: "EC3251", UnitNumber: 1, TopicIndex: 2}
	if err := store.Add(ctx, rec); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := store.Add(ctx, rec); err != nil {
		t.Fatalf("second Add() error = %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 {
		t.Errorf("List() returned %d records, want 1", len(list))
	}
}

func TestPostgresStore_IsCompletedAndList(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()

	store, err := progress.NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}

	records := []progress.Record{
		{SubjectCode: "MA3251", UnitNumber: 2, TopicIndex: 0},
		{SubjectCode: "EC3251", UnitNumber: 1, TopicIndex: 3},
	}
	for _, rec := range records {
		if err := store.Add(ctx, rec); err != nil {
			t.Fatalf("Add(%+v) error = %v", rec, err)
		}
	}

	done, err := store.IsCompleted(ctx, records[0])
	if err != nil {
		t.Fatalf("IsCompleted() error = %v", err)
	}
	if !done {
		t.Error("IsCompleted() = false after Add")
	}

	done, err = store.IsCompleted(ctx, progress.Record{SubjectCode: "EC3251", UnitNumber: 9, TopicIndex: 9})
	if err != nil {
		t.Fatalf("IsCompleted() error = %v", err)
	}
	if done {
		t.Error("IsCompleted() = true for missing record")
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() returned %d records, want 2", len(list))
	}
	if list[0].SubjectCode != "EC3251" {
		t.Errorf("List()[0].SubjectCode = %q, want EC3251", list[0].SubjectCode)
	}
	if time.Since(list[0].CompletedAt) > time.Minute {
		t.Errorf("CompletedAt = %v, want recent", list[0].CompletedAt)
	}
}

func TestPostgresEventLogger(t *testing.T) {
	pool := setupPostgres(t)

	logger := progress.NewPostgresEventLogger(pool)
	err := logger.LogEvent(progress.Event{
		EventType: "topic_completed",
		Data:      map[string]any{"code": "EC3251", "unit": 1, "topic": 2},
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	var count int
	if err := pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM activity_events WHERE event_type = 'topic_completed'`,
	).Scan(&count); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 1 {
		t.Errorf("event count = %d, want 1", count)
	}
}
