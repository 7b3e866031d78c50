package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"ragsearch/internal/domain"
	"ragsearch/internal/port"
)

var _ port.VectorStore = (*QdrantVectorStore)(nil)

// QdrantVectorStore is a REST client for one Qdrant collection. The payload
// field names match collections written by earlier deployments.
type QdrantVectorStore struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

type qdrantPayload struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Snippet     string `json:"snippet"`
	Content     string `json:"content"`
	ChunkIndex  int    `json:"chunk_index"`
	SourceIndex int    `json:"source_index"`
	Timestamp   int64  `json:"timestamp"`
}

type qdrantPoint struct {
	ID      string        `json:"id"`
	Vector  []float32     `json:"vector,omitempty"`
	Payload qdrantPayload `json:"payload"`
}

type qdrantScoredPoint struct {
	ID      any           `json:"id"`
	Score   float64       `json:"score"`
	Payload qdrantPayload `json:"payload"`
}

// statusError is a non-2xx Qdrant response.
type statusError struct {
	method string
	path   string
	code   int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %d %s", e.method, e.path, e.code, e.body)
}

func NewQdrantVectorStore(cfg QdrantConfig) *QdrantVectorStore {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &QdrantVectorStore{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *QdrantVectorStore) collectionPath(suffix string) string {
	return "/collections/" + url.PathEscape(s.collection) + suffix
}

// EnsureCollection creates the collection and its keyword index on link when
// absent, otherwise checks the existing vector parameters.
func (s *QdrantVectorStore) EnsureCollection(ctx context.Context, dimension int, metric string) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	distance, err := qdrantDistance(metric)
	if err != nil {
		return err
	}

	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size     int    `json:"size"`
						Distance string `json:"distance"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	err = s.do(ctx, http.MethodGet, s.collectionPath(""), nil, &info)
	switch {
	case err == nil:
		v := info.Result.Config.Params.Vectors
		if v.Size != dimension || !strings.EqualFold(v.Distance, distance) {
			return fmt.Errorf("%w: collection %s has dimension %d/%s, embedder needs %d/%s",
				domain.ErrCollectionMismatch, s.collection, v.Size, v.Distance, dimension, distance)
		}
		return nil
	case !isNotFound(err):
		return err
	}

	create := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": distance,
		},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionPath(""), create, nil); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
	}

	index := map[string]any{
		"field_name":   "link",
		"field_schema": "keyword",
	}
	if err := s.do(ctx, http.MethodPut, s.collectionPath("/index?wait=true"), index, nil); err != nil {
		return fmt.Errorf("failed to index link field: %w", err)
	}
	return nil
}

func qdrantDistance(metric string) (string, error) {
	switch metric {
	case MetricCosine:
		return "Cosine", nil
	case MetricDot:
		return "Dot", nil
	default:
		return "", fmt.Errorf("unsupported metric %q", metric)
	}
}

func (s *QdrantVectorStore) Exists(ctx context.Context, u string) (bool, error) {
	req := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "link", "match": map[string]any{"value": u}},
			},
		},
		"limit":        1,
		"with_payload": false,
		"with_vector":  false,
	}
	var resp struct {
		Result struct {
			Points []json.RawMessage `json:"points"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionPath("/points/scroll"), req, &resp); err != nil {
		return false, err
	}
	return len(resp.Result.Points) > 0, nil
}

func (s *QdrantVectorStore) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]qdrantPoint, len(records))
	for i, rec := range records {
		points[i] = qdrantPoint{
			ID:     rec.ID,
			Vector: rec.Vector,
			Payload: qdrantPayload{
				Title:       rec.Payload.Title,
				Link:        rec.Payload.URL,
				Snippet:     rec.Payload.Snippet,
				Content:     rec.Payload.Text,
				ChunkIndex:  rec.Payload.ChunkIndex,
				SourceIndex: rec.Payload.CandidateIndex,
				Timestamp:   rec.Payload.Timestamp.Unix(),
			},
		}
	}
	body := map[string]any{"points": points}
	return s.do(ctx, http.MethodPut, s.collectionPath("/points?wait=true"), body, nil)
}

// Search ranks server-side, then re-sorts so equal scores are ordered
// newest first and then by ID.
func (s *QdrantVectorStore) Search(ctx context.Context, vector []float32, limit int) ([]domain.RetrievedPassage, error) {
	if limit <= 0 {
		return nil, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var resp struct {
		Result []qdrantScoredPoint `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionPath("/points/search"), req, &resp); err != nil {
		return nil, err
	}

	hits := resp.Result
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Payload.Timestamp != hits[j].Payload.Timestamp {
			return hits[i].Payload.Timestamp > hits[j].Payload.Timestamp
		}
		return fmt.Sprint(hits[i].ID) < fmt.Sprint(hits[j].ID)
	})

	results := make([]domain.RetrievedPassage, 0, len(hits))
	for _, h := range hits {
		results = append(results, domain.RetrievedPassage{
			ID:      fmt.Sprint(h.ID),
			Title:   h.Payload.Title,
			URL:     h.Payload.Link,
			Text:    h.Payload.Content,
			Snippet: h.Payload.Snippet,
			Score:   h.Score,
		})
	}
	return results, nil
}

func (s *QdrantVectorStore) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionPath("/points/count"), map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// Ping returns false with no error when the server is up but the collection
// is missing.
func (s *QdrantVectorStore) Ping(ctx context.Context) (bool, error) {
	err := s.do(ctx, http.MethodGet, s.collectionPath(""), nil, nil)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (s *QdrantVectorStore) DropCollection(ctx context.Context) error {
	err := s.do(ctx, http.MethodDelete, s.collectionPath(""), nil, nil)
	if isNotFound(err) {
		return nil
	}
	return err
}

func (s *QdrantVectorStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *QdrantVectorStore) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{method: method, path: path, code: resp.StatusCode, body: string(preview)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode qdrant response: %w", err)
		}
	}
	return nil
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}
