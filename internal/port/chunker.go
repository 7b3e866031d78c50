package port

import "ragsearch/internal/domain"

// Chunker splits page text into retrieval-sized segments.
type Chunker interface {
	Chunk(text string, maxLength int) []string

	// ChunkCandidate returns the substantive chunks of a candidate's page,
	// indexed contiguously from 0.
	ChunkCandidate(cand domain.Candidate, text string, maxLength int) []domain.Chunk
}
