package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"ragsearch/internal/adapter/chunker"
	"ragsearch/internal/adapter/embedding"
	"ragsearch/internal/adapter/memstore"
	"ragsearch/internal/adapter/relevance"
	"ragsearch/internal/domain"
	"ragsearch/internal/port"
	"ragsearch/internal/retry"
)

var errUnavailable = errors.New("store unavailable")

// testStore wraps the in-memory store with failure injection and call
// recording.
type testStore struct {
	*memstore.MemoryStore

	mu            sync.Mutex
	existsErr     error
	upsertFails   int
	upsertCalls   int
	searchErr     error
	pingErr       error
	lastLimit     int
	upsertBatches [][]domain.VectorRecord
}

func newTestStore(dim int) *testStore {
	s := &testStore{MemoryStore: memstore.NewMemoryStore()}
	if err := s.EnsureCollection(context.Background(), dim, "cosine"); err != nil {
		panic(err)
	}
	return s
}

func (s *testStore) Exists(ctx context.Context, url string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	return s.MemoryStore.Exists(ctx, url)
}

func (s *testStore) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	s.mu.Lock()
	s.upsertCalls++
	if s.upsertFails != 0 {
		if s.upsertFails > 0 {
			s.upsertFails--
		}
		s.mu.Unlock()
		return errUnavailable
	}
	s.upsertBatches = append(s.upsertBatches, records)
	s.mu.Unlock()
	return s.MemoryStore.Upsert(ctx, records)
}

func (s *testStore) Search(ctx context.Context, vector []float32, limit int) ([]domain.RetrievedPassage, error) {
	s.lastLimit = limit
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.MemoryStore.Search(ctx, vector, limit)
}

func (s *testStore) Ping(ctx context.Context) (bool, error) {
	if s.pingErr != nil {
		return false, s.pingErr
	}
	return s.MemoryStore.Ping(ctx)
}

// flakyEmbedder fails whole batches and any text containing "poison".
type flakyEmbedder struct {
	*embedding.HashEmbedder
	failBatches bool
}

func (e *flakyEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.failBatches && len(texts) > 1 {
		return nil, errors.New("batch rejected")
	}
	for _, t := range texts {
		if strings.Contains(t, "poison") {
			return nil, errors.New("rejected input")
		}
	}
	return e.HashEmbedder.Embed(ctx, texts)
}

type rejectAll struct{}

func (rejectAll) Relevant(domain.Candidate) bool { return false }

type fakeProvider struct {
	result *port.SearchResult
	err    error
	calls  int
}

func (p *fakeProvider) Search(ctx context.Context, query string, limit int) (*port.SearchResult, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

type fakeFetcher struct {
	texts map[string]string
	calls int
}

func (f *fakeFetcher) FetchAll(ctx context.Context, urls []string) []domain.FetchResult {
	pages := f.FetchPages(ctx, urls)
	out := make([]domain.FetchResult, len(pages))
	for i, p := range pages {
		out[i] = domain.FetchResult{Text: p.Text, Success: p.Success}
	}
	return out
}

func (f *fakeFetcher) FetchPages(ctx context.Context, urls []string) []domain.FetchedPage {
	f.calls++
	pages := make([]domain.FetchedPage, len(urls))
	for i, u := range urls {
		text, ok := f.texts[u]
		pages[i] = domain.FetchedPage{URL: u, Text: text, Success: ok}
	}
	return pages
}

type mapCache struct {
	entries map[string]*port.SearchResult
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]*port.SearchResult)}
}

func (c *mapCache) Get(query string, limit int) (*port.SearchResult, bool) {
	r, ok := c.entries[fmt.Sprintf("%s|%d", query, limit)]
	return r, ok
}

func (c *mapCache) Put(query string, limit int, result *port.SearchResult) error {
	c.entries[fmt.Sprintf("%s|%d", query, limit)] = result
	return nil
}

type fakeSummarizer struct {
	err  error
	last port.SummaryRequest
}

func (s *fakeSummarizer) Summarize(ctx context.Context, req port.SummaryRequest) (string, error) {
	s.last = req
	if s.err != nil {
		return "", s.err
	}
	return "overview [1]", nil
}

func (s *fakeSummarizer) ModelName() string { return "fake" }

const testDim = 64

func paperText(topic string, sentences int) string {
	parts := make([]string, sentences)
	for i := range parts {
		parts[i] = fmt.Sprintf("Sentence %d of the %s study reports findings on memory consolidation", i, topic)
	}
	return strings.Join(parts, ". ") + "."
}

func candidates(n int) []domain.Candidate {
	out := make([]domain.Candidate, n)
	for i := range out {
		out[i] = domain.Candidate{
			Title:        fmt.Sprintf("Paper %d", i+1),
			URL:          fmt.Sprintf("https://papers.example.org/%d", i+1),
			Snippet:      fmt.Sprintf("Snippet for paper %d", i+1),
			SourceNumber: i + 1,
		}
	}
	return out
}

func pagesFor(cands []domain.Candidate) []domain.FetchedPage {
	pages := make([]domain.FetchedPage, len(cands))
	for i, c := range cands {
		pages[i] = domain.FetchedPage{URL: c.URL, Text: paperText(c.Title, 12), Success: true}
	}
	return pages
}

func newIngest(st port.VectorStore, emb port.Embedder, filter port.RelevanceFilter, attempts int) *IngestUseCase {
	if filter == nil {
		filter = relevance.AcceptAll{}
	}
	return NewIngestUseCase(
		st,
		emb,
		chunker.NewSentenceChunker(chunker.DefaultMaxChunks, chunker.DefaultMinChunkChars),
		filter,
		retry.Policy{MaxAttempts: attempts},
		chunker.DefaultMaxLength,
		zerolog.Nop(),
	)
}
