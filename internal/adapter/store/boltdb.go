package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"ragsearch/internal/domain"
	"ragsearch/internal/port"
)

// Each collection is a top-level bucket holding these sub-buckets.
var (
	bucketRecords = []byte("records")
	bucketURLs    = []byte("urls")
	bucketMeta    = []byte("meta")
	keyMeta       = []byte("collection")
)

var _ port.VectorStore = (*BoltVectorStore)(nil)

// BoltVectorStore keeps one named collection in a bbolt file.
// Uses brute-force search over an in-memory copy of the records; writes go
// through bbolt's single-writer transactions first.
type BoltVectorStore struct {
	db         *bbolt.DB
	collection []byte
	mu         sync.RWMutex
	meta       *CollectionMeta
	records    map[string]cachedRecord
}

type cachedRecord struct {
	vector  []float32
	payload domain.Payload
}

type storedRecord struct {
	Vector  []float32      `json:"v"`
	Payload domain.Payload `json:"p"`
}

// NewBoltVectorStore opens (or creates) the bbolt file at path. The
// collection itself is created by EnsureCollection.
func NewBoltVectorStore(path, collection string) (*BoltVectorStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	s := &BoltVectorStore{
		db:         db,
		collection: []byte(collection),
		records:    make(map[string]cachedRecord),
	}

	if err := s.load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load collection %s: %w", collection, err)
	}

	return s, nil
}

// load reads the collection's meta and records into memory.
func (s *BoltVectorStore) load() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(s.collection)
		if root == nil {
			return nil
		}

		meta, err := readMeta(root)
		if err != nil {
			return err
		}
		s.meta = meta

		records := root.Bucket(bucketRecords)
		if records == nil {
			return nil
		}
		return records.ForEach(func(k, v []byte) error {
			var stored storedRecord
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // Skip corrupted entries
			}
			s.records[string(k)] = cachedRecord{
				vector:  stored.Vector,
				payload: stored.Payload,
			}
			return nil
		})
	})
}

// Ping reports whether the collection has been bootstrapped.
func (s *BoltVectorStore) Ping(ctx context.Context) (bool, error) {
	exists := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		exists = tx.Bucket(s.collection) != nil
		return nil
	})
	return exists, err
}

// Count returns the number of records in the collection.
func (s *BoltVectorStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *BoltVectorStore) Close() error {
	return s.db.Close()
}

func urlKey(url, id string) []byte {
	return []byte(url + "\x00" + id)
}
