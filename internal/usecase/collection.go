package usecase

import (
	"context"
	"fmt"

	"ragsearch/internal/domain"
	"ragsearch/internal/port"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CollectionUseCase bootstraps and inspects the vector collection.
type CollectionUseCase struct {
	store      port.VectorStore
	embedder   port.Embedder
	backend    string
	collection string
	metric     string
}

func NewCollectionUseCase(store port.VectorStore, embedder port.Embedder, backend, collection, metric string) *CollectionUseCase {
	return &CollectionUseCase{
		store:      store,
		embedder:   embedder,
		backend:    backend,
		collection: collection,
		metric:     metric,
	}
}

// Setup creates the collection sized for the embedder. With recreate the
// existing collection and all its records are dropped first.
func (u *CollectionUseCase) Setup(ctx context.Context, recreate bool) error {
	if recreate {
		if err := u.store.DropCollection(ctx); err != nil {
			return fmt.Errorf("failed to drop collection %s: %w", u.collection, err)
		}
	}
	if err := u.store.EnsureCollection(ctx, u.embedder.Dimension(), u.metric); err != nil {
		return fmt.Errorf("failed to set up collection %s: %w", u.collection, err)
	}
	return nil
}

// Health reports store reachability and collection state. It never fails;
// problems are described in the report.
func (u *CollectionUseCase) Health(ctx context.Context) domain.HealthReport {
	report := domain.HealthReport{
		Status:         StatusUnhealthy,
		Backend:        u.backend,
		Collection:     u.collection,
		EmbeddingModel: u.embedder.ModelName(),
		EmbeddingDim:   u.embedder.Dimension(),
	}

	exists, err := u.store.Ping(ctx)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.StoreReachable = true
	report.CollectionExists = exists

	if !exists {
		report.Status = StatusDegraded
		report.Error = domain.ErrCollectionNotFound.Error()
		return report
	}

	n, err := u.store.Count(ctx)
	if err != nil {
		report.Status = StatusDegraded
		report.Error = err.Error()
		return report
	}
	report.Records = n
	report.Status = StatusHealthy
	return report
}
