package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"ragsearch/internal/domain"
	"ragsearch/internal/port"
)

const contextHeader = "RESEARCH PAPER CONTEXT:\n\n"

// RetrieveOptions bounds retrieval and context rendering.
type RetrieveOptions struct {
	DefaultTopK    int
	MaxTopK        int
	MinQueryChars  int
	TitlePreview   int
	ContentPreview int
}

// RetrieveUseCase handles search and retrieval operations.
type RetrieveUseCase struct {
	store    port.VectorStore
	embedder port.Embedder
	opts     RetrieveOptions
	logger   zerolog.Logger
}

// NewRetrieveUseCase creates a new retrieve use case.
func NewRetrieveUseCase(store port.VectorStore, embedder port.Embedder, opts RetrieveOptions, logger zerolog.Logger) *RetrieveUseCase {
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = 5
	}
	if opts.MaxTopK <= 0 {
		opts.MaxTopK = 50
	}
	if opts.MinQueryChars <= 0 {
		opts.MinQueryChars = 3
	}
	if opts.TitlePreview <= 0 {
		opts.TitlePreview = 100
	}
	if opts.ContentPreview <= 0 {
		opts.ContentPreview = 300
	}
	return &RetrieveUseCase{store: store, embedder: embedder, opts: opts, logger: logger}
}

// Retrieve returns stored passages similar to query. Short queries and
// store or embedding failures give an empty result, never an error.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query string, topK int) []domain.RetrievedPassage {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < u.opts.MinQueryChars {
		return []domain.RetrievedPassage{}
	}

	if topK <= 0 {
		topK = u.opts.DefaultTopK
	}
	if topK > u.opts.MaxTopK {
		topK = u.opts.MaxTopK
	}

	vectors, err := u.embedder.Embed(ctx, []string{query})
	if err != nil || len(vectors) != 1 {
		u.logger.Warn().Err(err).Msg("query embedding failed, continuing without stored context")
		return []domain.RetrievedPassage{}
	}

	passages, err := u.store.Search(ctx, vectors[0], topK)
	if err != nil {
		u.logger.Warn().Err(err).Msg("vector search failed, continuing without stored context")
		return []domain.RetrievedPassage{}
	}
	if passages == nil {
		passages = []domain.RetrievedPassage{}
	}
	return passages
}

// RenderContext formats passages as a numbered block in retrieval order.
// No passages renders as the empty string.
func (u *RetrieveUseCase) RenderContext(passages []domain.RetrievedPassage) string {
	if len(passages) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(contextHeader)
	for i, p := range passages {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, preview(p.Title, u.opts.TitlePreview))
		fmt.Fprintf(&sb, "   Source: %s\n", p.URL)
		fmt.Fprintf(&sb, "   Content: %s...\n", preview(p.Text, u.opts.ContentPreview))
		fmt.Fprintf(&sb, "   Relevance Score: %.3f\n\n", p.Score)
	}
	return sb.String()
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
