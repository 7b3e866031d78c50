package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragsearch/internal/domain"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(64)

	a, err := e.Embed(context.Background(), []string{"sleep deprivation study"})
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), []string{"sleep deprivation study"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a[0], 64)
	assert.InDelta(t, 1.0, cosine(a[0], a[0]), 1e-5)
}

func TestHashEmbedderSimilarity(t *testing.T) {
	e := NewHashEmbedder(384)

	vecs, err := e.Embed(context.Background(), []string{
		"effects of sleep deprivation on memory",
		"sleep deprivation and memory consolidation",
		"quarterly revenue of shipping companies",
	})
	require.NoError(t, err)

	assert.Greater(t, cosine(vecs[0], vecs[1]), cosine(vecs[0], vecs[2]))
}

func TestHashEmbedderEmptyText(t *testing.T) {
	e := NewHashEmbedder(16)

	vecs, err := e.Embed(context.Background(), []string{""})
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 16), vecs[0])
	assert.Equal(t, "hash", e.ModelName())
}

func TestNewOpenAIEmbedderMissingKey(t *testing.T) {
	t.Setenv("RAGSEARCH_TEST_EMPTY_KEY", "")

	_, err := NewOpenAIEmbedder("RAGSEARCH_TEST_EMPTY_KEY", "text-embedding-3-small", "", 0, 0)
	require.ErrorIs(t, err, domain.ErrMissingAPIKey)
}

func TestOpenAIEmbedderBatches(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)

		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, len(req.Input))
		// reverse order to check index placement
		for i := range req.Input {
			j := len(req.Input) - 1 - i
			data[i] = item{Object: "embedding", Embedding: []float32{float32(len(req.Input[j])), 0, 0, 1}, Index: j}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
		})
	}))
	defer srv.Close()

	e := newOpenAIEmbedder("test-key", "all-minilm", srv.URL+"/v1", 4, 2)

	vecs, err := e.Embed(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, 2, calls)
	assert.Equal(t, float32(1), vecs[0][0])
	assert.Equal(t, float32(2), vecs[1][0])
	assert.Equal(t, float32(3), vecs[2][0])
	assert.Equal(t, 4, e.Dimension())
}

func TestOpenAIEmbedderDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[{"object":"embedding","embedding":[0.1,0.2],"index":0}]}`))
	}))
	defer srv.Close()

	e := newOpenAIEmbedder("k", "all-minilm", srv.URL+"/v1", 384, 10)

	_, err := e.Embed(context.Background(), []string{"text"})
	require.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestOpenAIEmbedderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	e := newOpenAIEmbedder("k", "all-minilm", srv.URL+"/v1", 4, 10)

	_, err := e.Embed(context.Background(), []string{"text"})
	assert.Error(t, err)
}

func TestTokenize(t *testing.T) {
	got := tokenize("The Effects of Sleep-Deprivation on memory: a 2023 meta-analysis.")
	assert.Equal(t, []string{"effects", "sleep-deprivation", "memory", "2023", "meta-analysis"}, got)
	assert.Empty(t, tokenize("of the and - a"))
}
