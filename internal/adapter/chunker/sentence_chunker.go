package chunker

import (
	"strings"
	"unicode/utf8"

	"ragsearch/internal/domain"
	"ragsearch/internal/port"
)

const (
	sentenceDelimiter = ". "

	// Texts shorter than this are returned whole.
	minSplittableChars = 100

	DefaultMaxLength     = 500
	DefaultMaxChunks     = 20
	DefaultMinChunkChars = 50
)

var _ port.Chunker = (*SentenceChunker)(nil)

// SentenceChunker packs sentences into segments of bounded length.
type SentenceChunker struct {
	maxChunks     int
	minChunkChars int
}

func NewSentenceChunker(maxChunks, minChunkChars int) *SentenceChunker {
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunks
	}
	if minChunkChars < 0 {
		minChunkChars = DefaultMinChunkChars
	}
	return &SentenceChunker{
		maxChunks:     maxChunks,
		minChunkChars: minChunkChars,
	}
}

// Chunk splits text on sentence boundaries. Sentences are accumulated until
// the next one would push the buffer past maxLength. A single sentence longer
// than maxLength becomes a chunk of its own. At most maxChunks are returned;
// the remainder is dropped.
func (c *SentenceChunker) Chunk(text string, maxLength int) []string {
	if text == "" {
		return []string{}
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if utf8.RuneCountInString(text) < minSplittableChars {
		return []string{text}
	}

	sentences := strings.Split(text, sentenceDelimiter)
	chunks := make([]string, 0, c.maxChunks)
	var buf strings.Builder
	bufLen := 0

	flush := func() bool {
		if s := strings.TrimSpace(buf.String()); s != "" {
			chunks = append(chunks, s)
		}
		buf.Reset()
		bufLen = 0
		return len(chunks) >= c.maxChunks
	}

	for i, sentence := range sentences {
		piece := sentence
		if i < len(sentences)-1 {
			piece += sentenceDelimiter
		}
		pieceLen := utf8.RuneCountInString(strings.TrimRight(piece, " "))

		if bufLen > 0 && bufLen+pieceLen > maxLength {
			if flush() {
				return chunks
			}
		}
		buf.WriteString(piece)
		bufLen += utf8.RuneCountInString(piece)
	}

	if bufLen > 0 {
		flush()
	}
	return chunks
}

// ChunkCandidate builds the retrievable chunks for one fetched page. The
// candidate's title and snippet are prepended to the page text. Chunks of
// minChunkChars or fewer after trimming are discarded, and indices of the
// survivors are contiguous from 0.
func (c *SentenceChunker) ChunkCandidate(cand domain.Candidate, text string, maxLength int) []domain.Chunk {
	full := cand.Title + "\n" + cand.Snippet + "\n" + text

	var out []domain.Chunk
	for _, segment := range FilterSubstantive(c.Chunk(full, maxLength), c.minChunkChars) {
		out = append(out, domain.Chunk{
			Text:          segment,
			Index:         len(out),
			ParentURL:     cand.URL,
			ParentTitle:   cand.Title,
			ParentSnippet: cand.Snippet,
		})
	}
	return out
}

// FilterSubstantive drops chunks whose trimmed length is at most minChars.
func FilterSubstantive(chunks []string, minChars int) []string {
	kept := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		if utf8.RuneCountInString(strings.TrimSpace(ch)) > minChars {
			kept = append(kept, ch)
		}
	}
	return kept
}
