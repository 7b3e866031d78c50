package relevance

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"ragsearch/internal/domain"
	"ragsearch/internal/port"
)

// AcceptAll treats every candidate as relevant.
type AcceptAll struct{}

func (AcceptAll) Relevant(domain.Candidate) bool { return true }

// KeywordDomainFilter accepts complete candidates hosted on a listed domain or whose
// title, URL or snippet mention one of the keywords. Domain patterns are
// doublestar globs matched against the lowercased host, e.g. "*.arxiv.org".
type KeywordDomainFilter struct {
	domains  []string
	keywords []string
}

func NewKeywordDomainFilter(domains, keywords []string) (*KeywordDomainFilter, error) {
	f := &KeywordDomainFilter{}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if !doublestar.ValidatePattern(d) {
			return nil, fmt.Errorf("invalid domain pattern %q", d)
		}
		f.domains = append(f.domains, d)
	}
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			f.keywords = append(f.keywords, k)
		}
	}
	return f, nil
}

// Relevant rejects candidates missing a title, URL or snippet before looking
// at domains and keywords.
func (f *KeywordDomainFilter) Relevant(c domain.Candidate) bool {
	if strings.TrimSpace(c.Title) == "" || strings.TrimSpace(c.URL) == "" || strings.TrimSpace(c.Snippet) == "" {
		return false
	}
	if f.matchesDomain(c.URL) {
		return true
	}

	text := strings.ToLower(c.Title + " " + c.URL + " " + c.Snippet)
	for _, k := range f.keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func (f *KeywordDomainFilter) matchesDomain(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())

	for _, pattern := range f.domains {
		matched, err := doublestar.Match(pattern, host)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// New builds the filter named by kind: "all" or "research".
func New(kind string, domains, keywords []string) (port.RelevanceFilter, error) {
	switch kind {
	case "", "all":
		return AcceptAll{}, nil
	case "research":
		return NewKeywordDomainFilter(domains, keywords)
	default:
		return nil, fmt.Errorf("unknown relevance filter %q", kind)
	}
}
