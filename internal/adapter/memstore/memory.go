package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ragsearch/internal/adapter/store"
	"ragsearch/internal/domain"
	"ragsearch/internal/port"
)

var _ port.VectorStore = (*MemoryStore)(nil)

// MemoryStore is a process-local vector collection. Nothing survives Close.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	metric    string
	records   map[string]domain.VectorRecord
	urls      map[string]map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]domain.VectorRecord),
		urls:    make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStore) EnsureCollection(ctx context.Context, dimension int, metric string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension == 0 {
		s.dimension = dimension
		s.metric = metric
		return nil
	}
	if s.dimension != dimension || s.metric != metric {
		return fmt.Errorf("%w: have %d/%s, want %d/%s", domain.ErrCollectionMismatch, s.dimension, s.metric, dimension, metric)
	}
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, url string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.urls[url]) > 0, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension == 0 {
		return domain.ErrCollectionNotFound
	}
	for _, r := range records {
		if len(r.Vector) != s.dimension {
			return fmt.Errorf("%w: record %s has %d", domain.ErrDimensionMismatch, r.ID, len(r.Vector))
		}
	}

	for _, r := range records {
		if old, ok := s.records[r.ID]; ok {
			delete(s.urls[old.Payload.URL], r.ID)
		}
		s.records[r.ID] = r
		ids := s.urls[r.Payload.URL]
		if ids == nil {
			ids = make(map[string]struct{})
			s.urls[r.Payload.URL] = ids
		}
		ids[r.ID] = struct{}{}
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, vector []float32, limit int) ([]domain.RetrievedPassage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dimension == 0 {
		return nil, domain.ErrCollectionNotFound
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, s.dimension, len(vector))
	}
	if limit <= 0 {
		return nil, nil
	}

	similarity := store.SimilarityFunc(s.metric)
	results := make([]domain.RetrievedPassage, 0, len(s.records))
	for id, r := range s.records {
		results = append(results, domain.RetrievedPassage{
			ID:      id,
			Title:   r.Payload.Title,
			URL:     r.Payload.URL,
			Text:    r.Payload.Text,
			Snippet: r.Payload.Snippet,
			Score:   similarity(vector, r.Vector),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		ti := s.records[results[i].ID].Payload.Timestamp
		tj := s.records[results[j].ID].Payload.Timestamp
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return results[i].ID < results[j].ID
	})

	if limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *MemoryStore) Ping(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension > 0, nil
}

func (s *MemoryStore) DropCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = 0
	s.metric = ""
	s.records = make(map[string]domain.VectorRecord)
	s.urls = make(map[string]map[string]struct{})
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
