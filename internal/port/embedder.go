package port

import (
	"context"

	"ragsearch/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorStore persists vector records for one collection and answers
// similarity and exact-URL queries over them.
type VectorStore interface {
	// EnsureCollection creates the collection if absent. An existing
	// collection with a different dimension or metric is an error.
	EnsureCollection(ctx context.Context, dimension int, metric string) error

	// Exists reports whether any record's payload URL equals url exactly.
	Exists(ctx context.Context, url string) (bool, error)

	// Upsert writes records, replacing any with the same ID.
	// An empty slice performs no I/O.
	Upsert(ctx context.Context, records []domain.VectorRecord) error

	// Search returns up to limit records, most similar first.
	Search(ctx context.Context, vector []float32, limit int) ([]domain.RetrievedPassage, error)

	// Count returns the number of records in the collection.
	Count(ctx context.Context) (int, error)

	// Ping checks connectivity and reports whether the collection exists.
	Ping(ctx context.Context) (bool, error)

	// DropCollection deletes the collection and every record in it.
	DropCollection(ctx context.Context) error

	Close() error
}
