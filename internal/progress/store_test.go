package progress_test

import (
	"context"
	"testing"

	"github.com/drillbook/drillbook/internal/progress"
)

func TestMemoryStore_AddIdempotent(t *testing.T) {
	ctx := context.Background()
	store := progress.NewMemoryStore()
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
	if list[0].CompletedAt.IsZero() {
		t.Error("CompletedAt is zero")
	}
}

func TestMemoryStore_IsCompleted(t *testing.T) {
	ctx := context.Background()
	store := progress.NewMemoryStore()
	rec := progress.Record{SubjectCode: "MA3251", UnitNumber: 2, TopicIndex: 0}

	done, err := store.IsCompleted(ctx, rec)
	if err != nil {
		t.Fatalf("IsCompleted() error = %v", err)
	}
	if done {
		t.Error("IsCompleted() = true before Add")
	}

	if err := store.Add(ctx, rec); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	done, err = store.IsCompleted(ctx, rec)
	if err != nil {
		t.Fatalf("IsCompleted() error = %v", err)
	}
	if !done {
		t.Error("IsCompleted() = false after Add")
	}
}

func TestMemoryStore_ListSorted(t *testing.T) {
	ctx := context.Background()
	store := progress.NewMemoryStore()
	for _, rec := range []progress.Record{
		{SubjectCode: "MA3251", UnitNumber: 1, TopicIndex: 0},
		{SubjectCode: "EC3251", UnitNumber: 2, TopicIndex: 3},
		{SubjectCode: "EC3251", UnitNumber: 2, TopicIndex: 1},
	} {
		if err := store.Add(ctx, rec); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []progress.Record{
		{SubjectCode: "EC3251", UnitNumber: 2, TopicIndex: 1},
		{SubjectCode: "EC3251", UnitNumber: 2, TopicIndex: 3},
		{SubjectCode: "MA3251", UnitNumber: 1, TopicIndex: 0},
	}
	if len(list) != len(want) {
		t.Fatalf("List() returned %d records, want %d", len(list), len(want))
	}
	for i := range want {
		if list[i].Record != want[i] {
			t.Errorf("List()[%d] = %+v, want %+v", i, list[i].Record, want[i])
		}
	}
}
