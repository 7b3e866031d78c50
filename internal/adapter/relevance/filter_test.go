package relevance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragsearch/internal/domain"
)

func TestKeywordDomainFilter(t *testing.T) {
	f, err := NewKeywordDomainFilter(
		[]string{"arxiv.org", "*.arxiv.org", "*.nature.com"},
		[]string{"Clinical Trial", "peer-reviewed"},
	)
	require.NoError(t, err)

	tests := []struct {
		name string
		cand domain.Candidate
		want bool
	}{
		{"bare domain", domain.Candidate{Title: "Paper", URL: "https://arxiv.org/abs/2401.1", Snippet: "abstract"}, true},
		{"subdomain", domain.Candidate{Title: "Paper", URL: "https://export.arxiv.org/abs/2401.1", Snippet: "abstract"}, true},
		{"host case", domain.Candidate{Title: "Paper", URL: "https://WWW.Nature.com/articles/x", Snippet: "abstract"}, true},
		{"lookalike host", domain.Candidate{Title: "Paper", URL: "https://notarxiv.org/abs/1", Snippet: "abstract"}, false},
		{"keyword in title", domain.Candidate{Title: "A clinical trial of X", URL: "https://blog.example.com", Snippet: "post"}, true},
		{"keyword in snippet", domain.Candidate{Title: "Post", Snippet: "a Peer-Reviewed article", URL: "https://example.com"}, true},
		{"unrelated", domain.Candidate{Title: "Best pizza", URL: "https://food.example.com", Snippet: "cheese"}, false},
		{"unparseable url", domain.Candidate{Title: "Paper", URL: "::bad", Snippet: "abstract"}, false},
		{"missing title", domain.Candidate{URL: "https://arxiv.org/abs/2401.1", Snippet: "abstract"}, false},
		{"missing snippet", domain.Candidate{Title: "A clinical trial of X", URL: "https://arxiv.org/abs/2401.1"}, false},
		{"blank url", domain.Candidate{Title: "A clinical trial of X", URL: "  ", Snippet: "abstract"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Relevant(tt.cand))
		})
	}
}

func TestNew(t *testing.T) {
	all, err := New("all", nil, nil)
	require.NoError(t, err)
	assert.True(t, all.Relevant(domain.Candidate{URL: "https://anything.example"}))

	research, err := New("research", []string{"*.acm.org"}, []string{"study"})
	require.NoError(t, err)
	assert.True(t, research.Relevant(domain.Candidate{Title: "Paper", URL: "https://dl.acm.org/doi/1", Snippet: "abstract"}))
	assert.False(t, research.Relevant(domain.Candidate{Title: "Post", URL: "https://example.com", Snippet: "notes"}))

	_, err = New("magic", nil, nil)
	assert.Error(t, err)

	_, err = New("research", []string{"[unclosed"}, nil)
	assert.Error(t, err)
}
