package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ragsearch/internal/domain"
	"ragsearch/internal/port"
	"ragsearch/internal/retry"
)

const (
	maxPayloadTitle   = 200
	maxPayloadSnippet = 500
)

// recordNamespace scopes deterministic record IDs.
var recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ragsearch/records"))

// RecordID is stable for a (url, chunk index) pair, so replaying an
// ingestion overwrites instead of duplicating.
func RecordID(url string, chunkIndex int) string {
	return uuid.NewSHA1(recordNamespace, []byte(url+"#"+strconv.Itoa(chunkIndex))).String()
}

// IngestUseCase turns fetched candidates into stored vector records.
type IngestUseCase struct {
	store     port.VectorStore
	embedder  port.Embedder
	chunker   port.Chunker
	relevance port.RelevanceFilter
	policy    retry.Policy
	chunkSize int
	logger    zerolog.Logger
	now       func() time.Time
}

// NewIngestUseCase creates a new ingest use case.
func NewIngestUseCase(
	store port.VectorStore,
	embedder port.Embedder,
	chunker port.Chunker,
	relevance port.RelevanceFilter,
	policy retry.Policy,
	chunkSize int,
	logger zerolog.Logger,
) *IngestUseCase {
	return &IngestUseCase{
		store:     store,
		embedder:  embedder,
		chunker:   chunker,
		relevance: relevance,
		policy:    policy,
		chunkSize: chunkSize,
		logger:    logger,
		now:       time.Now,
	}
}

// Ingest stores every relevant, not yet known candidate. The whole pass is
// retried under the configured policy; a retry re-runs the existence checks
// so URLs written by an earlier attempt count as duplicates.
func (u *IngestUseCase) Ingest(ctx context.Context, candidates []domain.Candidate, pages []domain.FetchedPage) (domain.IngestionSummary, error) {
	var summary domain.IngestionSummary

	err := u.policy.Do(ctx, func(attempt int) error {
		if attempt > 0 {
			u.logger.Warn().Int("attempt", attempt+1).Msg("retrying ingestion")
		}
		s, err := u.ingestOnce(ctx, candidates, pages)
		if err != nil {
			return err
		}
		summary = s
		return nil
	})
	if err != nil {
		return domain.IngestionSummary{}, fmt.Errorf("ingestion failed: %w", err)
	}

	u.logger.Info().
		Int("added", summary.Added).
		Int("duplicates", summary.Duplicates).
		Int("skipped", summary.Skipped).
		Int("chunks", summary.Chunks).
		Msg("ingestion complete")
	return summary, nil
}

func (u *IngestUseCase) ingestOnce(ctx context.Context, candidates []domain.Candidate, pages []domain.FetchedPage) (domain.IngestionSummary, error) {
	var summary domain.IngestionSummary

	texts := make(map[string]string, len(pages))
	for _, p := range pages {
		if p.Success {
			texts[p.URL] = p.Text
		}
	}

	var batch []domain.VectorRecord
	batched := make(map[string]struct{})
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if !u.relevance.Relevant(cand) {
			summary.Skipped++
			continue
		}

		text := texts[cand.URL]
		if strings.TrimSpace(text) == "" && strings.TrimSpace(cand.Snippet) == "" {
			summary.Skipped++
			continue
		}

		// the store cannot see records still waiting in batch
		if _, ok := batched[cand.URL]; ok {
			summary.Duplicates++
			continue
		}

		exists, err := u.store.Exists(ctx, cand.URL)
		if err != nil {
			u.logger.Warn().Err(err).Str("url", cand.URL).Msg("existence check failed, treating as new")
		}
		if exists {
			summary.Duplicates++
			continue
		}

		records := u.buildRecords(ctx, cand, text)
		if len(records) == 0 {
			summary.Skipped++
			continue
		}

		batch = append(batch, records...)
		batched[cand.URL] = struct{}{}
		summary.Added++
		summary.Chunks += len(records)
	}

	if len(batch) > 0 {
		if err := u.store.Upsert(ctx, batch); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

func (u *IngestUseCase) buildRecords(ctx context.Context, cand domain.Candidate, text string) []domain.VectorRecord {
	chunks := u.chunker.ChunkCandidate(cand, text, u.chunkSize)
	if len(chunks) == 0 {
		return nil
	}

	vectors := u.embedChunks(ctx, chunks)
	ts := u.now()

	records := make([]domain.VectorRecord, 0, len(chunks))
	for i, ch := range chunks {
		if vectors[i] == nil {
			continue
		}
		records = append(records, domain.VectorRecord{
			ID:     RecordID(cand.URL, ch.Index),
			Vector: vectors[i],
			Payload: domain.Payload{
				Title:          preview(cand.Title, maxPayloadTitle),
				URL:            cand.URL,
				Snippet:        preview(cand.Snippet, maxPayloadSnippet),
				Text:           ch.Text,
				ChunkIndex:     ch.Index,
				CandidateIndex: cand.SourceNumber - 1,
				Timestamp:      ts,
			},
		})
	}
	return records
}

// embedChunks embeds all chunks in one call and falls back to one call per
// chunk when the batch fails. A nil vector marks a chunk that could not be
// embedded.
func (u *IngestUseCase) embedChunks(ctx context.Context, chunks []domain.Chunk) [][]float32 {
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	vectors, err := u.embedder.Embed(ctx, texts)
	if err == nil && len(vectors) == len(texts) {
		return vectors
	}
	u.logger.Debug().Err(err).Msg("batch embedding failed, embedding chunks one by one")

	vectors = make([][]float32, len(texts))
	for i, t := range texts {
		v, err := u.embedder.Embed(ctx, []string{t})
		if err != nil || len(v) != 1 {
			u.logger.Warn().Err(err).Str("url", chunks[i].ParentURL).Int("chunk", chunks[i].Index).Msg("skipping chunk that failed to embed")
			continue
		}
		vectors[i] = v[0]
	}
	return vectors
}
