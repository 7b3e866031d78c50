package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"ragsearch/internal/port"
)

var bucketQueries = []byte("queries")

// QueryCache keeps the ordered search results of recent queries on disk so
// every page of a query is cut from the same numbered candidate list, even
// across processes. Entries expire after ttl; beyond maxSize the least
// recently read entries are evicted.
type QueryCache struct {
	db      *bbolt.DB
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	Query      string             `json:"query"`
	Result     *port.SearchResult `json:"result"`
	CreatedAt  time.Time          `json:"created_at"`
	AccessedAt time.Time          `json:"accessed_at"`
}

func NewQueryCache(path string, maxSize int, ttl time.Duration) (*QueryCache, error) {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open query cache: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketQueries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &QueryCache{
		db:      db,
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

func cacheKey(query string, limit int) []byte {
	data := []byte(normalizeQuery(query))
	data = binary.BigEndian.AppendUint16(data, uint16(limit))
	hash := sha256.Sum256(data)
	return []byte(hex.EncodeToString(hash[:16]))
}

// Get returns the cached result for query and marks it recently used.
// Expired entries are removed and reported as a miss.
func (c *QueryCache) Get(query string, limit int) (*port.SearchResult, bool) {
	key := cacheKey(query, limit)
	var result *port.SearchResult

	err := c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketQueries)
		data := b.Get(key)
		if data == nil {
			return nil
		}

		var entry cacheEntry
		if err := json.Unmarshal(data, &entry); err != nil || entry.Result == nil {
			return b.Delete(key)
		}

		now := c.now()
		if now.Sub(entry.CreatedAt) > c.ttl {
			return b.Delete(key)
		}

		entry.AccessedAt = now
		updated, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		result = entry.Result
		return b.Put(key, updated)
	})
	if err != nil || result == nil {
		return nil, false
	}
	return result, true
}

// Put stores result for query, evicting the least recently used entries
// when the cache is full.
func (c *QueryCache) Put(query string, limit int, result *port.SearchResult) error {
	now := c.now()
	data, err := json.Marshal(cacheEntry{
		Query:      query,
		Result:     result,
		CreatedAt:  now,
		AccessedAt: now,
	})
	if err != nil {
		return err
	}

	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketQueries)
		if err := b.Put(cacheKey(query, limit), data); err != nil {
			return err
		}
		return c.evict(b)
	})
}

func (c *QueryCache) evict(b *bbolt.Bucket) error {
	type aged struct {
		key      []byte
		accessed time.Time
	}
	var entries []aged
	err := b.ForEach(func(k, v []byte) error {
		var entry cacheEntry
		if err := json.Unmarshal(v, &entry); err != nil {
			entry.AccessedAt = time.Time{}
		}
		entries = append(entries, aged{key: append([]byte(nil), k...), accessed: entry.AccessedAt})
		return nil
	})
	if err != nil {
		return err
	}
	if len(entries) <= c.maxSize {
		return nil
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].accessed.Before(entries[j].accessed)
	})
	for _, e := range entries[:len(entries)-c.maxSize] {
		if err := b.Delete(e.key); err != nil {
			return err
		}
	}
	return nil
}

// Delete drops one query's entry.
func (c *QueryCache) Delete(query string, limit int) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketQueries).Delete(cacheKey(query, limit))
	})
}

// Clear removes every entry.
func (c *QueryCache) Clear() error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketQueries); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketQueries)
		return err
	})
}

func (c *QueryCache) Size() int {
	n := 0
	c.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketQueries).ForEach(func(k, v []byte) error {
			n++
			return nil
		})
	})
	return n
}

func (c *QueryCache) Close() error {
	return c.db.Close()
}
