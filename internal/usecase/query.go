package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ragsearch/internal/domain"
	"ragsearch/internal/port"
)

// maxFetchedPerSource bounds how much of each fetched page goes into the
// combined content handed to the summarizer.
const maxFetchedPerSource = 2000

// QueryRequest asks for one page of a query execution.
type QueryRequest struct {
	Query     string
	Page      int
	PerPage   int
	TopK      int
	Summarize bool
}

// QueryUseCase runs search, ingestion, retrieval and pagination for a query.
type QueryUseCase struct {
	provider   port.SearchProvider
	cache      port.CandidateCache
	fetcher    port.Fetcher
	ingest     *IngestUseCase
	retrieve   *RetrieveUseCase
	summarizer port.Summarizer
	maxResults int
	perPage    int
	logger     zerolog.Logger
}

// NewQueryUseCase creates a new query use case. cache may be nil.
func NewQueryUseCase(
	provider port.SearchProvider,
	cache port.CandidateCache,
	fetcher port.Fetcher,
	ingest *IngestUseCase,
	retrieve *RetrieveUseCase,
	summarizer port.Summarizer,
	maxResults, perPage int,
	logger zerolog.Logger,
) *QueryUseCase {
	return &QueryUseCase{
		provider:   provider,
		cache:      cache,
		fetcher:    fetcher,
		ingest:     ingest,
		retrieve:   retrieve,
		summarizer: summarizer,
		maxResults: maxResults,
		perPage:    perPage,
		logger:     logger,
	}
}

// Execute answers one page of req. Only an empty candidate list fails the
// request; every other problem degrades the response.
func (u *QueryUseCase) Execute(ctx context.Context, req QueryRequest) (*domain.SearchResponse, error) {
	start := time.Now()

	resp, summaryReq, err := u.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	if req.Summarize {
		overview, err := u.summarizer.Summarize(ctx, summaryReq)
		if err != nil {
			u.logger.Warn().Err(err).Msg("summarization failed, returning sources only")
		}
		resp.Overview = overview
	}

	resp.ProcessingTime = time.Since(start)
	return resp, nil
}

// Prepare runs everything up to summarization and returns the request the
// summarizer would receive.
func (u *QueryUseCase) Prepare(ctx context.Context, req QueryRequest) (*domain.SearchResponse, port.SummaryRequest, error) {
	start := time.Now()
	query := strings.TrimSpace(req.Query)

	result, cached := u.candidates(ctx, query)
	if len(result.Candidates) == 0 {
		return nil, port.SummaryRequest{}, fmt.Errorf("%w for %q", domain.ErrNoCandidates, query)
	}

	resp := &domain.SearchResponse{
		Query:          query,
		KnowledgeGraph: result.KnowledgeGraph,
	}

	// A cached list was ingested when it was first searched.
	var pages []domain.FetchedPage
	if !cached {
		pages = u.fetchAndIngest(ctx, result.Candidates, resp)
	}

	passages := u.retrieve.Retrieve(ctx, query, req.TopK)
	resp.RAGContext = u.retrieve.RenderContext(passages)
	resp.Page = Paginate(result.Candidates, req.Page, req.PerPage, u.perPage)
	resp.ProcessingTime = time.Since(start)

	summaryReq := port.SummaryRequest{
		Query:           query,
		CombinedContent: CombinedContent(result, pages),
		RAGContext:      resp.RAGContext,
		Sources:         summarySources(result.Candidates),
	}
	return resp, summaryReq, nil
}

// Ingest searches, fetches and stores candidates for query without
// retrieving or summarizing.
func (u *QueryUseCase) Ingest(ctx context.Context, query string) (*domain.SearchResponse, error) {
	start := time.Now()
	query = strings.TrimSpace(query)

	result, err := u.search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(result.Candidates) == 0 {
		return nil, fmt.Errorf("%w for %q", domain.ErrNoCandidates, query)
	}

	resp := &domain.SearchResponse{Query: query, KnowledgeGraph: result.KnowledgeGraph}
	u.fetchAndIngest(ctx, result.Candidates, resp)
	if u.cache != nil {
		if err := u.cache.Put(query, u.maxResults, result); err != nil {
			u.logger.Debug().Err(err).Msg("failed to cache candidates")
		}
	}

	resp.Page = Paginate(result.Candidates, 1, len(result.Candidates), u.perPage)
	resp.ProcessingTime = time.Since(start)
	return resp, nil
}

// candidates returns the ordered list for query and whether it came from
// the cache. Provider failures give an empty list.
func (u *QueryUseCase) candidates(ctx context.Context, query string) (*port.SearchResult, bool) {
	if u.cache != nil {
		if result, ok := u.cache.Get(query, u.maxResults); ok {
			u.logger.Debug().Str("query", query).Msg("using cached candidates")
			return result, true
		}
	}

	result, err := u.search(ctx, query)
	if err != nil {
		u.logger.Warn().Err(err).Str("query", query).Msg("search failed")
		return &port.SearchResult{}, false
	}

	if u.cache != nil && len(result.Candidates) > 0 {
		if err := u.cache.Put(query, u.maxResults, result); err != nil {
			u.logger.Debug().Err(err).Msg("failed to cache candidates")
		}
	}
	return result, false
}

func (u *QueryUseCase) search(ctx context.Context, query string) (*port.SearchResult, error) {
	result, err := u.provider.Search(ctx, query, u.maxResults)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return &port.SearchResult{}, nil
	}
	return result, nil
}

func (u *QueryUseCase) fetchAndIngest(ctx context.Context, candidates []domain.Candidate, resp *domain.SearchResponse) []domain.FetchedPage {
	urls := make([]string, len(candidates))
	for i, c := range candidates {
		urls[i] = c.URL
	}

	pages := u.fetcher.FetchPages(ctx, urls)
	for _, p := range pages {
		if p.Success {
			resp.FetchedCount++
		}
	}

	summary, err := u.ingest.Ingest(ctx, candidates, pages)
	if err != nil && !errors.Is(err, context.Canceled) {
		u.logger.Error().Err(err).Msg("ingestion failed, continuing with existing context")
	}
	resp.Ingestion = summary
	return pages
}

// CombinedContent joins the search snippets, fetched page text and
// knowledge graph into one block, each source under its citation number.
func CombinedContent(result *port.SearchResult, pages []domain.FetchedPage) string {
	texts := make(map[string]string, len(pages))
	for _, p := range pages {
		if p.Success {
			texts[p.URL] = p.Text
		}
	}

	var sb strings.Builder
	if result.KnowledgeGraph != "" {
		fmt.Fprintf(&sb, "Knowledge Graph: %s\n\n", result.KnowledgeGraph)
	}
	for _, c := range result.Candidates {
		fmt.Fprintf(&sb, "[%d] %s\n", c.SourceNumber, c.Title)
		if c.Snippet != "" {
			sb.WriteString(c.Snippet)
			sb.WriteString("\n")
		}
		if text := strings.TrimSpace(texts[c.URL]); text != "" {
			sb.WriteString(preview(text, maxFetchedPerSource))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

func summarySources(candidates []domain.Candidate) []port.SummarySource {
	sources := make([]port.SummarySource, len(candidates))
	for i, c := range candidates {
		sources[i] = port.SummarySource{
			Number:  c.SourceNumber,
			Title:   c.Title,
			URL:     c.URL,
			Snippet: c.Snippet,
		}
	}
	return sources
}
