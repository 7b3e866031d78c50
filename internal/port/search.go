package port

import (
	"context"

	"ragsearch/internal/domain"
)

// SearchProvider returns ordered search candidates for a query.
type SearchProvider interface {
	Search(ctx context.Context, query string, limit int) (*SearchResult, error)
}

type SearchResult struct {
	Candidates []domain.Candidate
	// KnowledgeGraph is an optional provider summary of the query topic.
	KnowledgeGraph string
}

// Fetcher retrieves page text for a list of URLs. The result always has
// one entry per input URL, in input order.
type Fetcher interface {
	FetchAll(ctx context.Context, urls []string) []domain.FetchResult
	FetchPages(ctx context.Context, urls []string) []domain.FetchedPage
}

// CandidateCache keeps a query's ordered candidate list so later pages of
// the same query reuse it instead of searching again.
type CandidateCache interface {
	Get(query string, limit int) (*SearchResult, bool)
	Put(query string, limit int, result *SearchResult) error
}

// RelevanceFilter decides whether a candidate is eligible for ingestion.
type RelevanceFilter interface {
	Relevant(c domain.Candidate) bool
}
