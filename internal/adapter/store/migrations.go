package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"ragsearch/internal/domain"
)

// CurrentSchemaVersion is the current collection layout version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

const (
	MetricCosine = "cosine"
	MetricDot    = "dot"
)

// CollectionMeta is fixed when a collection is created.
type CollectionMeta struct {
	SchemaVersion int       `json:"schema_version"`
	Dimension     int       `json:"dimension"`
	Metric        string    `json:"metric"`
	CreatedAt     time.Time `json:"created_at"`
}

func readMeta(root *bbolt.Bucket) (*CollectionMeta, error) {
	b := root.Bucket(bucketMeta)
	if b == nil {
		return nil, fmt.Errorf("collection has no meta bucket")
	}
	data := b.Get(keyMeta)
	if data == nil {
		return nil, fmt.Errorf("collection has no meta record")
	}

	var meta CollectionMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode collection meta: %w", err)
	}
	if meta.SchemaVersion == 0 {
		meta.SchemaVersion = 1
	}
	return &meta, nil
}

func writeMeta(root *bbolt.Bucket, meta *CollectionMeta) error {
	b, err := root.CreateBucketIfNotExists(bucketMeta)
	if err != nil {
		return err
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return b.Put(keyMeta, data)
}

// EnsureCollection creates the collection if absent and rejects an existing
// collection whose dimension or metric differ from the requested ones, or
// whose layout was written by a newer version.
func (s *BoltVectorStore) EnsureCollection(ctx context.Context, dimension int, metric string) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	if metric != MetricCosine && metric != MetricDot {
		return fmt.Errorf("unsupported metric %q", metric)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var meta *CollectionMeta
	err := s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(s.collection)
		if root == nil {
			var err error
			root, err = tx.CreateBucket(s.collection)
			if err != nil {
				return err
			}
			for _, name := range [][]byte{bucketRecords, bucketURLs} {
				if _, err := root.CreateBucket(name); err != nil {
					return fmt.Errorf("failed to create bucket %s: %w", name, err)
				}
			}
			meta = &CollectionMeta{
				SchemaVersion: CurrentSchemaVersion,
				Dimension:     dimension,
				Metric:        metric,
				CreatedAt:     time.Now().UTC(),
			}
			return writeMeta(root, meta)
		}

		existing, err := readMeta(root)
		if err != nil {
			return err
		}
		if existing.Dimension != dimension || existing.Metric != metric {
			return fmt.Errorf("%w: collection %s has dimension %d/%s, embedder needs %d/%s",
				domain.ErrCollectionMismatch, s.collection, existing.Dimension, existing.Metric, dimension, metric)
		}
		if existing.SchemaVersion > CurrentSchemaVersion {
			return fmt.Errorf("%w: collection created by newer version (v%d > v%d)",
				domain.ErrCollectionMismatch, existing.SchemaVersion, CurrentSchemaVersion)
		}

		meta = existing
		return nil
	})
	if err != nil {
		return err
	}

	s.meta = meta
	return nil
}

// DropCollection deletes the collection bucket and clears the cache.
func (s *BoltVectorStore) DropCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(s.collection) == nil {
			return nil
		}
		return tx.DeleteBucket(s.collection)
	})
	if err != nil {
		return err
	}

	s.meta = nil
	s.records = make(map[string]cachedRecord)
	return nil
}

// currentMeta returns a copy of the collection's meta, or nil before
// EnsureCollection.
func (s *BoltVectorStore) currentMeta() *CollectionMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.meta == nil {
		return nil
	}
	m := *s.meta
	return &m
}
