package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ragsearch/internal/domain"
	"ragsearch/internal/port"
)

const DefaultEndpoint = "https://google.serper.dev/search"

type SerperConfig struct {
	Endpoint  string
	APIKey    string
	Country   string
	Language  string
	RateLimit float64
	Timeout   time.Duration
}

// SerperProvider queries the Serper Google Search API.
type SerperProvider struct {
	cfg     SerperConfig
	client  *http.Client
	limiter *rate.Limiter
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num,omitempty"`
	GL  string `json:"gl,omitempty"`
	HL  string `json:"hl,omitempty"`
}

type serperResponse struct {
	Organic []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Position int    `json:"position"`
	} `json:"organic"`
	KnowledgeGraph *struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"knowledgeGraph"`
}

// NewSerperProviderFromEnv reads the API key from apiKeyEnv.
func NewSerperProviderFromEnv(apiKeyEnv string, cfg SerperConfig) (*SerperProvider, error) {
	key := os.Getenv(apiKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingAPIKey, apiKeyEnv)
	}
	cfg.APIKey = key
	return NewSerperProvider(cfg), nil
}

func NewSerperProvider(cfg SerperConfig) *SerperProvider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	p := &SerperProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.RateLimit > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return p
}

// Search returns at most limit candidates numbered 1..N in result order.
// Results without a link are dropped before numbering.
func (p *SerperProvider) Search(ctx context.Context, query string, limit int) (*port.SearchResult, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	data, err := json.Marshal(serperRequest{
		Q:   query,
		Num: limit,
		GL:  p.cfg.Country,
		HL:  p.cfg.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("search API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(preview)))
	}

	var body serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	result := &port.SearchResult{}
	for _, o := range body.Organic {
		if limit > 0 && len(result.Candidates) >= limit {
			break
		}
		if o.Link == "" {
			continue
		}
		result.Candidates = append(result.Candidates, domain.Candidate{
			Title:        o.Title,
			URL:          o.Link,
			Snippet:      o.Snippet,
			SourceNumber: len(result.Candidates) + 1,
		})
	}
	if kg := body.KnowledgeGraph; kg != nil && kg.Description != "" {
		result.KnowledgeGraph = kg.Description
	}

	return result, nil
}
