package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"go.etcd.io/bbolt"

	"ragsearch/internal/domain"
)

// Exists reports whether any record was ingested from url. The URL index
// keys are "url\x00id", so a prefix seek answers without touching records.
func (s *BoltVectorStore) Exists(ctx context.Context, url string) (bool, error) {
	prefix := []byte(url + "\x00")
	found := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(s.collection)
		if root == nil {
			return nil
		}
		urls := root.Bucket(bucketURLs)
		if urls == nil {
			return nil
		}
		k, _ := urls.Cursor().Seek(prefix)
		found = k != nil && bytes.HasPrefix(k, prefix)
		return nil
	})
	return found, err
}

// Upsert writes records in one transaction, replacing any with the same ID.
func (s *BoltVectorStore) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.meta == nil {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, s.collection)
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(s.collection)
		if root == nil {
			return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, s.collection)
		}
		recs := root.Bucket(bucketRecords)
		urls := root.Bucket(bucketURLs)

		for _, rec := range records {
			if len(rec.Vector) != s.meta.Dimension {
				return fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, s.meta.Dimension, len(rec.Vector))
			}

			// drop a stale index entry if the ID moved to another URL
			if old, ok := s.records[rec.ID]; ok && old.payload.URL != rec.Payload.URL {
				if err := urls.Delete(urlKey(old.payload.URL, rec.ID)); err != nil {
					return err
				}
			}

			data, err := json.Marshal(storedRecord{Vector: rec.Vector, Payload: rec.Payload})
			if err != nil {
				return err
			}
			if err := recs.Put([]byte(rec.ID), data); err != nil {
				return err
			}
			if err := urls.Put(urlKey(rec.Payload.URL, rec.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, rec := range records {
		s.records[rec.ID] = cachedRecord{vector: rec.Vector, payload: rec.Payload}
	}
	return nil
}

// Search returns the limit most similar records. Equal scores are ordered
// newest first, then by ID.
func (s *BoltVectorStore) Search(ctx context.Context, vector []float32, limit int) ([]domain.RetrievedPassage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.meta == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, s.collection)
	}
	if len(vector) != s.meta.Dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, s.meta.Dimension, len(vector))
	}
	if limit <= 0 || len(s.records) == 0 {
		return nil, nil
	}

	type scored struct {
		id    string
		score float64
		rec   cachedRecord
	}

	similarity := SimilarityFunc(s.meta.Metric)

	scores := make([]scored, 0, len(s.records))
	for id, rec := range s.records {
		scores = append(scores, scored{id: id, score: similarity(vector, rec.vector), rec: rec})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		ti, tj := scores[i].rec.payload.Timestamp, scores[j].rec.payload.Timestamp
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return scores[i].id < scores[j].id
	})

	if limit > len(scores) {
		limit = len(scores)
	}

	results := make([]domain.RetrievedPassage, limit)
	for i := 0; i < limit; i++ {
		p := scores[i].rec.payload
		results[i] = domain.RetrievedPassage{
			ID:      scores[i].id,
			Title:   p.Title,
			URL:     p.URL,
			Text:    p.Text,
			Snippet: p.Snippet,
			Score:   scores[i].score,
		}
	}

	return results, nil
}

// SimilarityFunc returns the scoring function for a collection metric.
func SimilarityFunc(metric string) func(a, b []float32) float64 {
	if metric == MetricDot {
		return dotProduct
	}
	return cosineSimilarity
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

func dotProduct(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
