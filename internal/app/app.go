// Package app builds the pipeline components once from configuration and
// hands them to the commands that use them.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"ragsearch/config"
	"ragsearch/internal/adapter/cache"
	"ragsearch/internal/adapter/chunker"
	"ragsearch/internal/adapter/embedding"
	"ragsearch/internal/adapter/fetcher"
	"ragsearch/internal/adapter/memstore"
	"ragsearch/internal/adapter/relevance"
	"ragsearch/internal/adapter/search"
	"ragsearch/internal/adapter/store"
	"ragsearch/internal/adapter/summarizer"
	"ragsearch/internal/port"
	"ragsearch/internal/retry"
	"ragsearch/internal/usecase"
)

// Options select which parts of the pipeline a command needs.
type Options struct {
	// Dir holds the default bolt collection and candidate cache.
	Dir string
	// Search builds the search provider, fetcher, ingestion and summarizer.
	Search bool
	// Bootstrap creates the collection if it is missing.
	Bootstrap bool
}

// App owns every long-lived component. Close releases them.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    port.VectorStore
	Embedder port.Embedder
	Fetcher  *fetcher.HTTPFetcher
	Cache    *cache.QueryCache

	Query      *usecase.QueryUseCase
	Retrieve   *usecase.RetrieveUseCase
	Collection *usecase.CollectionUseCase
}

// New validates cfg and wires the components. Configuration problems and a
// collection that cannot be bootstrapped are returned here, before any
// request runs.
func New(ctx context.Context, cfg *config.Config, opts Options, logger zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{Config: cfg, Logger: logger}

	emb, err := newEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	a.Embedder = emb

	st, err := newStore(cfg, opts.Dir)
	if err != nil {
		return nil, err
	}
	a.Store = st

	a.Collection = usecase.NewCollectionUseCase(st, emb, cfg.VectorStore.Backend, cfg.VectorStore.Collection, cfg.VectorStore.Metric)
	if opts.Bootstrap {
		if err := a.Collection.Setup(ctx, false); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Retrieve = usecase.NewRetrieveUseCase(st, emb, usecase.RetrieveOptions{
		DefaultTopK:    cfg.Retrieve.TopK,
		MaxTopK:        cfg.Retrieve.MaxTopK,
		MinQueryChars:  cfg.Retrieve.MinQueryChars,
		TitlePreview:   cfg.Retrieve.TitlePreview,
		ContentPreview: cfg.Retrieve.ContentPreview,
	}, logger.With().Str("component", "retrieve").Logger())

	if opts.Search {
		if err := a.wireSearch(cfg, opts.Dir); err != nil {
			a.Close()
			return nil, err
		}
	}

	logger.Debug().
		Str("backend", cfg.VectorStore.Backend).
		Str("collection", cfg.VectorStore.Collection).
		Str("embedding_model", emb.ModelName()).
		Int("dimension", emb.Dimension()).
		Msg("pipeline ready")
	return a, nil
}

func (a *App) wireSearch(cfg *config.Config, dir string) error {
	provider, err := search.NewSerperProviderFromEnv(cfg.Search.APIKeyEnv, search.SerperConfig{
		Endpoint:  cfg.Search.Endpoint,
		Country:   cfg.Search.Country,
		Language:  cfg.Search.Language,
		RateLimit: cfg.Search.RateLimit,
		Timeout:   time.Duration(cfg.Search.TimeoutSecs) * time.Second,
	})
	if err != nil {
		return err
	}

	filter, err := relevance.New(cfg.Ingest.Filter, cfg.Ingest.Domains, cfg.Ingest.Keywords)
	if err != nil {
		return err
	}

	sum, err := newSummarizer(cfg.Summarize)
	if err != nil {
		return err
	}

	a.Fetcher = fetcher.New(fetcher.Options{
		Concurrency:  cfg.Fetch.Concurrency,
		Timeout:      cfg.FetchTimeout(),
		MaxRetries:   cfg.Fetch.MaxRetries,
		RetryBackoff: time.Duration(cfg.Fetch.RetryBackoffMs) * time.Millisecond,
		MaxChars:     cfg.Fetch.MaxChars,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		RateLimit:    cfg.Fetch.RateLimit,
		UserAgent:    cfg.Fetch.UserAgent,
	}, a.Logger)

	ingest := usecase.NewIngestUseCase(
		a.Store,
		a.Embedder,
		chunker.NewSentenceChunker(cfg.Ingest.MaxChunks, cfg.Ingest.MinChunkChars),
		filter,
		retry.Policy{
			MaxAttempts: cfg.Ingest.MaxAttempts,
			BaseDelay:   time.Duration(cfg.Ingest.BaseDelayMs) * time.Millisecond,
			Multiplier:  cfg.Ingest.Multiplier,
			MaxDelay:    time.Duration(cfg.Ingest.MaxDelayMs) * time.Millisecond,
		},
		cfg.Ingest.ChunkSize,
		a.Logger.With().Str("component", "ingest").Logger(),
	)

	var candidateCache port.CandidateCache
	if cfg.Cache.Enabled {
		if err := config.EnsureDataDir(dir); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		c, err := cache.NewQueryCache(cfg.CachePath(dir), cfg.Cache.MaxEntries, cfg.CacheTTL())
		if err != nil {
			return err
		}
		a.Cache = c
		candidateCache = c
	}

	a.Query = usecase.NewQueryUseCase(
		provider,
		candidateCache,
		a.Fetcher,
		ingest,
		a.Retrieve,
		sum,
		cfg.Search.MaxResults,
		cfg.Pagination.PerPage,
		a.Logger.With().Str("component", "query").Logger(),
	)
	return nil
}

func newEmbedder(cfg config.EmbeddingConfig) (port.Embedder, error) {
	switch cfg.Provider {
	case "openai":
		return embedding.NewOpenAIEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL, cfg.Dimension, cfg.BatchSize)
	case "hash":
		return embedding.NewHashEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

func newStore(cfg *config.Config, dir string) (port.VectorStore, error) {
	switch cfg.VectorStore.Backend {
	case "bolt":
		if cfg.VectorStore.Path == "" {
			if err := config.EnsureDataDir(dir); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		return store.NewBoltVectorStore(cfg.StorePath(dir), cfg.VectorStore.Collection)
	case "qdrant":
		return store.NewQdrantVectorStore(store.QdrantConfig{
			URL:        cfg.VectorStore.URL,
			APIKey:     os.Getenv(cfg.VectorStore.APIKeyEnv),
			Collection: cfg.VectorStore.Collection,
		}), nil
	case "memory":
		return memstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported vector store backend: %s", cfg.VectorStore.Backend)
	}
}

func newSummarizer(cfg config.SummarizeConfig) (port.Summarizer, error) {
	if !cfg.Enabled {
		return summarizer.NoopSummarizer{}, nil
	}
	return summarizer.NewOpenAISummarizer(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL, cfg.MaxTokens, cfg.Temperature)
}

// Close releases the store and cache.
func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
