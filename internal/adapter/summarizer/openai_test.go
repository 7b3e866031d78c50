package summarizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragsearch/internal/port"
)

func sampleRequest() port.SummaryRequest {
	return port.SummaryRequest{
		Query:           "does sleep improve memory?",
		CombinedContent: "Sleep consolidates memory.",
		RAGContext:      "RESEARCH PAPER CONTEXT:\n1. Old paper",
		Sources: []port.SummarySource{
			{Number: 1, Title: "Sleep and memory", URL: "https://a.org", Snippet: "A review."},
			{Number: 2, Title: "Naps", URL: "https://b.org"},
		},
	}
}

func TestRenderPrompt(t *testing.T) {
	prompt, err := RenderPrompt(sampleRequest())
	require.NoError(t, err)

	assert.Contains(t, prompt, "does sleep improve memory?")
	assert.Contains(t, prompt, "[1] Sleep and memory - https://a.org")
	assert.Contains(t, prompt, "    A review.")
	assert.Contains(t, prompt, "[2] Naps - https://b.org")
	assert.Contains(t, prompt, "Sleep consolidates memory.")
	assert.Contains(t, prompt, "RESEARCH PAPER CONTEXT:")
}

func TestRenderPromptOmitsEmptySections(t *testing.T) {
	req := sampleRequest()
	req.CombinedContent = ""
	req.RAGContext = ""

	prompt, err := RenderPrompt(req)
	require.NoError(t, err)
	assert.NotContains(t, prompt, "# Search content")
	assert.NotContains(t, prompt, "# Previously collected research")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	assert.Equal(t, "éé...", truncate("ééé", 2))
}

func TestOpenAISummarizer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.True(t, strings.Contains(req.Messages[1].Content, "[2] Naps"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  Sleep helps [1].  "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	s := newOpenAISummarizer("k", "gpt-test", srv.URL+"/v1", 256, 0.2)
	out, err := s.Summarize(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "Sleep helps [1].", out)
	assert.Equal(t, "gpt-test", s.ModelName())
}

func TestOpenAISummarizerNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	s := newOpenAISummarizer("k", "gpt-test", srv.URL+"/v1", 256, 0.2)
	_, err := s.Summarize(context.Background(), sampleRequest())
	assert.Error(t, err)
}

func TestNoopSummarizer(t *testing.T) {
	out, err := NoopSummarizer{}.Summarize(context.Background(), sampleRequest())
	assert.NoError(t, err)
	assert.Empty(t, out)
}
