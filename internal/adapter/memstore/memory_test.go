package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"ragsearch/internal/domain"
)

func record(id, url string, vec []float32, ts time.Time) domain.VectorRecord {
	return domain.VectorRecord{
		ID:      id,
		Vector:  vec,
		Payload: domain.Payload{Title: id, URL: url, Text: "text " + id, Timestamp: ts},
	}
}

func TestMemoryStore_UpsertExistsSearch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.EnsureCollection(ctx, 2, "cosine"); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	err := s.Upsert(ctx, []domain.VectorRecord{
		record("a", "https://a.org", []float32{1, 0}, now),
		record("b", "https://b.org", []float32{0, 1}, now),
	})
	if err != nil {
		t.Fatal(err)
	}

	if ok, _ := s.Exists(ctx, "https://a.org"); !ok {
		t.Error("expected https://a.org to exist")
	}
	if ok, _ := s.Exists(ctx, "https://a.org/"); ok {
		t.Error("exists must match exactly")
	}

	got, err := s.Search(ctx, []float32{1, 0.1}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "a" {
		t.Fatalf("unexpected ranking: %+v", got)
	}
}

func TestMemoryStore_UpsertIsIdempotentByID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.EnsureCollection(ctx, 2, "cosine")

	r := record("a", "https://a.org", []float32{1, 0}, time.Now())
	s.Upsert(ctx, []domain.VectorRecord{r})
	s.Upsert(ctx, []domain.VectorRecord{r})

	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("expected 1 record, got %d", n)
	}
}

func TestMemoryStore_TiesPreferNewer(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.EnsureCollection(ctx, 2, "cosine")

	old := time.Now().Add(-time.Hour)
	s.Upsert(ctx, []domain.VectorRecord{
		record("old", "https://old.org", []float32{1, 0}, old),
		record("new", "https://new.org", []float32{1, 0}, old.Add(time.Minute)),
	})

	got, _ := s.Search(ctx, []float32{1, 0}, 2)
	if got[0].ID != "new" {
		t.Errorf("expected newer record first, got %s", got[0].ID)
	}
}

func TestMemoryStore_RequiresCollection(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.Upsert(ctx, []domain.VectorRecord{record("a", "u", []float32{1}, time.Now())})
	if !errors.Is(err, domain.ErrCollectionNotFound) {
		t.Errorf("expected ErrCollectionNotFound, got %v", err)
	}

	s.EnsureCollection(ctx, 2, "cosine")
	if err := s.EnsureCollection(ctx, 3, "cosine"); !errors.Is(err, domain.ErrCollectionMismatch) {
		t.Errorf("expected ErrCollectionMismatch, got %v", err)
	}
}
