package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the search pipeline.
type Config struct {
	Search      SearchConfig      `yaml:"search"`
	Fetch       FetchConfig       `yaml:"fetch"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Retrieve    RetrieveConfig    `yaml:"retrieve"`
	Pagination  PaginationConfig  `yaml:"pagination"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Summarize   SummarizeConfig   `yaml:"summarize"`
	Cache       CacheConfig       `yaml:"cache"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SearchConfig holds search-results provider configuration.
type SearchConfig struct {
	Provider    string  `yaml:"provider"` // "serper"
	Endpoint    string  `yaml:"endpoint"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	MaxResults  int     `yaml:"max_results"`
	RateLimit   float64 `yaml:"rate_limit"` // requests per second, 0 = unlimited
	TimeoutSecs int     `yaml:"timeout_secs"`
	Country     string  `yaml:"country"`
	Language    string  `yaml:"language"`
}

// FetchConfig holds content fetcher configuration.
type FetchConfig struct {
	Concurrency    int     `yaml:"concurrency"`
	TimeoutSecs    int     `yaml:"timeout_secs"`
	MaxRetries     int     `yaml:"max_retries"`
	RetryBackoffMs int     `yaml:"retry_backoff_ms"`
	MaxChars       int     `yaml:"max_chars"`
	MaxBodyBytes   int64   `yaml:"max_body_bytes"`
	RateLimit      float64 `yaml:"rate_limit"`
	UserAgent      string  `yaml:"user_agent"`
}

// IngestConfig holds ingestion pipeline configuration.
type IngestConfig struct {
	ChunkSize     int      `yaml:"chunk_size"`
	MaxChunks     int      `yaml:"max_chunks"`
	MinChunkChars int      `yaml:"min_chunk_chars"`
	Filter        string   `yaml:"filter"` // "all", "research"
	Domains       []string `yaml:"domains"`
	Keywords      []string `yaml:"keywords"`
	MaxAttempts   int      `yaml:"max_attempts"`
	BaseDelayMs   int      `yaml:"base_delay_ms"`
	Multiplier    float64  `yaml:"multiplier"`
	MaxDelayMs    int      `yaml:"max_delay_ms"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK           int `yaml:"top_k"`
	MaxTopK        int `yaml:"max_top_k"`
	MinQueryChars  int `yaml:"min_query_chars"`
	TitlePreview   int `yaml:"title_preview"`
	ContentPreview int `yaml:"content_preview"`
}

// PaginationConfig holds result paging configuration.
type PaginationConfig struct {
	PerPage int `yaml:"per_page"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "openai", "hash"
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for API key
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// VectorStoreConfig holds vector collection configuration.
type VectorStoreConfig struct {
	Backend    string `yaml:"backend"` // "bolt", "qdrant", "memory"
	Path       string `yaml:"path"`
	URL        string `yaml:"url"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Collection string `yaml:"collection"`
	Metric     string `yaml:"metric"`
}

// SummarizeConfig holds summarizer configuration.
type SummarizeConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// CacheConfig holds per-query candidate cache configuration.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxEntries int    `yaml:"max_entries"`
	TTLSecs    int    `yaml:"ttl_secs"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console", "json"
	File   string `yaml:"file"`
}

// DefaultResearchDomains are hosts treated as scholarly sources.
var DefaultResearchDomains = []string{
	"arxiv.org", "*.arxiv.org",
	"pubmed.ncbi.nlm.nih.gov", "*.ncbi.nlm.nih.gov",
	"ieeexplore.ieee.org", "*.ieee.org",
	"dl.acm.org", "*.acm.org",
	"link.springer.com", "*.springer.com",
	"www.sciencedirect.com", "*.sciencedirect.com",
	"www.nature.com", "*.nature.com",
	"www.researchgate.net", "*.researchgate.net",
	"*.biorxiv.org", "biorxiv.org",
	"*.medrxiv.org", "medrxiv.org",
	"www.jstor.org", "*.jstor.org",
	"onlinelibrary.wiley.com", "*.wiley.com",
	"www.tandfonline.com", "*.tandfonline.com",
	"journals.sagepub.com", "*.sage.com",
}

// DefaultResearchKeywords mark a candidate as research-oriented.
var DefaultResearchKeywords = []string{
	"study", "research", "analysis", "findings", "paper", "journal",
	"proceedings", "conference", "peer-reviewed", "systematic review",
	"meta-analysis", "clinical trial", "experiment", "methodology",
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			Provider:    "serper",
			Endpoint:    "https://google.serper.dev/search",
			APIKeyEnv:   "SERPER_API_KEY",
			MaxResults:  10,
			RateLimit:   2,
			TimeoutSecs: 15,
		},
		Fetch: FetchConfig{
			Concurrency:    5,
			TimeoutSecs:    20,
			MaxRetries:     1,
			RetryBackoffMs: 500,
			MaxChars:       50000,
			MaxBodyBytes:   5 << 20,
			UserAgent:      "Mozilla/5.0 (compatible; ragsearch/1.0)",
		},
		Ingest: IngestConfig{
			ChunkSize:     500,
			MaxChunks:     20,
			MinChunkChars: 50,
			Filter:        "research",
			Domains:       append([]string(nil), DefaultResearchDomains...),
			Keywords:      append([]string(nil), DefaultResearchKeywords...),
			MaxAttempts:   3,
			BaseDelayMs:   1000,
			Multiplier:    2,
			MaxDelayMs:    10000,
		},
		Retrieve: RetrieveConfig{
			TopK:           5,
			MaxTopK:        50,
			MinQueryChars:  3,
			TitlePreview:   100,
			ContentPreview: 300,
		},
		Pagination: PaginationConfig{
			PerPage: 10,
		},
		Embedding: EmbeddingConfig{
			Provider:  "hash",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 384,
			BatchSize: 100,
		},
		VectorStore: VectorStoreConfig{
			Backend:    "bolt",
			URL:        "http://localhost:6333",
			APIKeyEnv:  "QDRANT_API_KEY",
			Collection: "research_papers_prod",
			Metric:     "cosine",
		},
		Summarize: SummarizeConfig{
			Enabled:     false,
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   1024,
			Temperature: 0.3,
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 100,
			TTLSecs:    600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for ragsearch.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "ragsearch.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".ragsearch", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports every invalid setting at once. Any error here is fatal
// at startup.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Search.MaxResults > 0 && c.Search.MaxResults <= 20, "search.max_results must be in 1..20, got %d", c.Search.MaxResults)
	check(c.Search.Endpoint != "", "search.endpoint is required")
	check(c.Fetch.Concurrency > 0, "fetch.concurrency must be positive, got %d", c.Fetch.Concurrency)
	check(c.Fetch.TimeoutSecs > 0, "fetch.timeout_secs must be positive, got %d", c.Fetch.TimeoutSecs)
	check(c.Fetch.MaxRetries >= 0, "fetch.max_retries must not be negative, got %d", c.Fetch.MaxRetries)
	check(c.Fetch.MaxChars > 0, "fetch.max_chars must be positive, got %d", c.Fetch.MaxChars)
	check(c.Ingest.ChunkSize > 0, "ingest.chunk_size must be positive, got %d", c.Ingest.ChunkSize)
	check(c.Ingest.MaxChunks > 0, "ingest.max_chunks must be positive, got %d", c.Ingest.MaxChunks)
	check(c.Ingest.MaxAttempts > 0, "ingest.max_attempts must be positive, got %d", c.Ingest.MaxAttempts)
	check(c.Ingest.Filter == "all" || c.Ingest.Filter == "research", "ingest.filter must be \"all\" or \"research\", got %q", c.Ingest.Filter)
	check(c.Retrieve.MaxTopK > 0, "retrieve.max_top_k must be positive, got %d", c.Retrieve.MaxTopK)
	check(c.Pagination.PerPage > 0, "pagination.per_page must be positive, got %d", c.Pagination.PerPage)
	check(c.Embedding.Dimension > 0, "embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	check(c.Embedding.Provider == "openai" || c.Embedding.Provider == "hash", "embedding.provider must be \"openai\" or \"hash\", got %q", c.Embedding.Provider)
	check(c.VectorStore.Backend == "bolt" || c.VectorStore.Backend == "qdrant" || c.VectorStore.Backend == "memory", "vector_store.backend must be \"bolt\", \"qdrant\" or \"memory\", got %q", c.VectorStore.Backend)
	check(c.VectorStore.Collection != "", "vector_store.collection is required")
	check(c.VectorStore.Metric == "cosine" || c.VectorStore.Metric == "dot", "vector_store.metric must be \"cosine\" or \"dot\", got %q", c.VectorStore.Metric)
	if c.VectorStore.Backend == "qdrant" {
		check(c.VectorStore.URL != "", "vector_store.url is required for the qdrant backend")
	}

	return errors.Join(errs...)
}

// FetchTimeout returns the per-URL fetch budget.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSecs) * time.Second
}

// CacheTTL returns the candidate cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSecs) * time.Second
}

// StorePath returns the bolt collection file, defaulting under dir.
func (c *Config) StorePath(dir string) string {
	if c.VectorStore.Path != "" {
		return c.VectorStore.Path
	}
	return filepath.Join(dir, ".ragsearch", "vectors.db")
}

// CachePath returns the candidate cache file, defaulting under dir.
func (c *Config) CachePath(dir string) string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return filepath.Join(dir, ".ragsearch", "cache.db")
}

// EnsureDataDir ensures the .ragsearch directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".ragsearch"), 0755)
}
