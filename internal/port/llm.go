package port

import "context"

// Summarizer turns assembled content into prose with [n] citations.
type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}

// SummaryRequest carries everything the summarizer may cite. Sources keep
// their search-order source numbers.
type SummaryRequest struct {
	Query           string
	CombinedContent string
	RAGContext      string
	Sources         []SummarySource
}

type SummarySource struct {
	Number  int
	Title   string
	URL     string
	Snippet string
}
