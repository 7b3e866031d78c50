package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"ragsearch/internal/adapter/embedding"
	"ragsearch/internal/domain"
	"ragsearch/internal/port"
)

type queryFixture struct {
	store      *testStore
	provider   *fakeProvider
	fetcher    *fakeFetcher
	cache      *mapCache
	summarizer *fakeSummarizer
	uc         *QueryUseCase
}

func newQueryFixture(n int) *queryFixture {
	cands := candidates(n)
	texts := make(map[string]string, n)
	for _, p := range pagesFor(cands) {
		texts[p.URL] = p.Text
	}

	f := &queryFixture{
		store:      newTestStore(testDim),
		provider:   &fakeProvider{result: &port.SearchResult{Candidates: cands, KnowledgeGraph: "Sleep is a state of rest."}},
		fetcher:    &fakeFetcher{texts: texts},
		cache:      newMapCache(),
		summarizer: &fakeSummarizer{},
	}
	emb := embedding.NewHashEmbedder(testDim)
	f.uc = NewQueryUseCase(
		f.provider,
		f.cache,
		f.fetcher,
		newIngest(f.store, emb, nil, 1),
		NewRetrieveUseCase(f.store, emb, RetrieveOptions{}, zerolog.Nop()),
		f.summarizer,
		20,
		10,
		zerolog.Nop(),
	)
	return f
}

func TestExecute_FullPipeline(t *testing.T) {
	f := newQueryFixture(12)

	resp, err := f.uc.Execute(context.Background(), QueryRequest{Query: "sleep and memory", Page: 1, PerPage: 5, Summarize: true})
	if err != nil {
		t.Fatal(err)
	}

	if resp.Overview != "overview [1]" {
		t.Errorf("unexpected overview %q", resp.Overview)
	}
	if resp.FetchedCount != 12 || resp.Ingestion.Added != 12 {
		t.Errorf("expected all 12 fetched and added, got %d / %+v", resp.FetchedCount, resp.Ingestion)
	}
	if !strings.HasPrefix(resp.RAGContext, "RESEARCH PAPER CONTEXT:") {
		t.Errorf("expected rendered context, got %q", resp.RAGContext)
	}
	if len(resp.Page.Candidates) != 5 || !resp.Page.HasNextPage || resp.Page.TotalAvailable != 12 {
		t.Errorf("unexpected page: %+v", resp.Page)
	}

	sources := f.summarizer.last.Sources
	if len(sources) != 12 {
		t.Fatalf("summarizer should see every source, got %d", len(sources))
	}
	for i, s := range sources {
		if s.Number != i+1 {
			t.Errorf("source %d numbered %d", i, s.Number)
		}
	}
	if !strings.Contains(f.summarizer.last.CombinedContent, "Knowledge Graph: Sleep is a state of rest.") {
		t.Error("combined content should carry the knowledge graph")
	}
}

func TestExecute_LaterPagesReuseCandidates(t *testing.T) {
	f := newQueryFixture(12)
	ctx := context.Background()

	p1, err := f.uc.Execute(ctx, QueryRequest{Query: "sleep and memory", Page: 1, PerPage: 5})
	if err != nil {
		t.Fatal(err)
	}
	p2, err := f.uc.Execute(ctx, QueryRequest{Query: "sleep and memory", Page: 2, PerPage: 5})
	if err != nil {
		t.Fatal(err)
	}

	if f.provider.calls != 1 || f.fetcher.calls != 1 {
		t.Errorf("expected one search and one fetch, got %d and %d", f.provider.calls, f.fetcher.calls)
	}
	if p1.Page.Candidates[0].SourceNumber != 1 || p2.Page.Candidates[0].SourceNumber != 6 {
		t.Errorf("source numbers shifted between pages: %d, %d",
			p1.Page.Candidates[0].SourceNumber, p2.Page.Candidates[0].SourceNumber)
	}
	if p2.RAGContext == "" {
		t.Error("later pages should still retrieve stored context")
	}
}

func TestExecute_NoCandidates(t *testing.T) {
	f := newQueryFixture(0)
	_, err := f.uc.Execute(context.Background(), QueryRequest{Query: "nothing", Page: 1})
	if !errors.Is(err, domain.ErrNoCandidates) {
		t.Errorf("expected ErrNoCandidates, got %v", err)
	}
}

func TestExecute_ProviderFailureIsNoCandidates(t *testing.T) {
	f := newQueryFixture(3)
	f.provider.err = errors.New("timeout")

	_, err := f.uc.Execute(context.Background(), QueryRequest{Query: "sleep", Page: 1})
	if !errors.Is(err, domain.ErrNoCandidates) {
		t.Errorf("expected ErrNoCandidates, got %v", err)
	}
	if len(f.cache.entries) != 0 {
		t.Error("failed searches must not be cached")
	}
}

func TestExecute_DegradesOnPartialFailures(t *testing.T) {
	f := newQueryFixture(4)
	f.store.upsertFails = -1
	f.store.searchErr = errUnavailable
	f.summarizer.err = errors.New("model overloaded")

	resp, err := f.uc.Execute(context.Background(), QueryRequest{Query: "sleep and memory", Page: 1, Summarize: true})
	if err != nil {
		t.Fatalf("partial failures should not fail the request: %v", err)
	}
	if resp.Overview != "" || resp.RAGContext != "" {
		t.Errorf("expected empty overview and context, got %q / %q", resp.Overview, resp.RAGContext)
	}
	if len(resp.Page.Candidates) != 4 {
		t.Errorf("expected all sources on the page, got %d", len(resp.Page.Candidates))
	}
}

func TestIngestOnly(t *testing.T) {
	f := newQueryFixture(3)

	resp, err := f.uc.Ingest(context.Background(), "sleep and memory")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Ingestion.Added != 3 {
		t.Errorf("expected 3 added, got %+v", resp.Ingestion)
	}
	if resp.Overview != "" || resp.RAGContext != "" {
		t.Error("ingest should not retrieve or summarize")
	}
	if _, ok := f.cache.Get("sleep and memory", 20); !ok {
		t.Error("ingested candidates should be cached")
	}
}

func TestCombinedContent(t *testing.T) {
	result := &port.SearchResult{
		Candidates: []domain.Candidate{
			{Title: "A", URL: "https://a.org", Snippet: "snippet a", SourceNumber: 1},
			{Title: "B", URL: "https://b.org", SourceNumber: 2},
		},
	}
	got := CombinedContent(result, []domain.FetchedPage{
		{URL: "https://b.org", Text: "body of b", Success: true},
	})

	want := "[1] A\nsnippet a\n\n[2] B\nbody of b"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPrepare_DoesNotSummarize(t *testing.T) {
	f := newQueryFixture(2)

	resp, req, err := f.uc.Prepare(context.Background(), QueryRequest{Query: "sleep and memory", Page: 1})
	if err != nil {
		t.Fatal(err)
	}
	if f.summarizer.last.Query != "" {
		t.Error("prepare must not call the summarizer")
	}
	if req.Query != "sleep and memory" || len(req.Sources) != 2 || req.RAGContext != resp.RAGContext {
		t.Errorf("unexpected summary request: %+v", req)
	}
	if !strings.Contains(req.CombinedContent, "[2] Paper 2") {
		t.Errorf("combined content missing second source: %q", req.CombinedContent)
	}
}
