package domain

import "time"

// Candidate is one search result. SourceNumber is its 1-based position in
// the provider's ordered list and is the only citation key for the query.
type Candidate struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	Snippet      string `json:"snippet"`
	SourceNumber int    `json:"source_number"`
}

type FetchResult struct {
	Text    string
	Success bool
}

type FetchedPage struct {
	URL       string
	Text      string
	Success   bool
	Truncated bool
}

type Chunk struct {
	Text          string
	Index         int
	ParentURL     string
	ParentTitle   string
	ParentSnippet string
}

type VectorRecord struct {
	ID      string
	Vector  []float32
	Payload Payload
}

type Payload struct {
	Title          string    `json:"title"`
	URL            string    `json:"url"`
	Snippet        string    `json:"snippet"`
	Text           string    `json:"text"`
	ChunkIndex     int       `json:"chunk_index"`
	CandidateIndex int       `json:"source_index"`
	Timestamp      time.Time `json:"timestamp"`
}

type RetrievedPassage struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Text    string  `json:"text"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

type PageResult struct {
	Candidates     []Candidate `json:"sources"`
	TotalAvailable int         `json:"total_results"`
	CurrentPage    int         `json:"current_page"`
	PerPage        int         `json:"per_page"`
	HasNextPage    bool        `json:"has_next_page"`
}

type IngestionSummary struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
	Chunks     int `json:"chunks"`
}

// SearchResponse is the assembled answer for one page of a query execution.
type SearchResponse struct {
	Query          string           `json:"query"`
	Overview       string           `json:"overview,omitempty"`
	KnowledgeGraph string           `json:"knowledge_graph,omitempty"`
	RAGContext     string           `json:"rag_context,omitempty"`
	Page           PageResult       `json:"page"`
	Ingestion      IngestionSummary `json:"ingestion"`
	FetchedCount   int              `json:"fetched_count"`
	ProcessingTime time.Duration    `json:"processing_time_ns"`
}

type HealthReport struct {
	Status           string `json:"status"`
	Backend          string `json:"backend"`
	StoreReachable   bool   `json:"store_reachable"`
	CollectionExists bool   `json:"collection_exists"`
	Collection       string `json:"collection"`
	Records          int    `json:"records"`
	EmbeddingModel   string `json:"embedding_model"`
	EmbeddingDim     int    `json:"embedding_dimension"`
	Error            string `json:"error,omitempty"`
}
