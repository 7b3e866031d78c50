package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"ragsearch/internal/domain"
	"ragsearch/internal/retry"
)

// TruncationMarker is appended to text cut at MaxChars.
const TruncationMarker = "..."

type Options struct {
	Concurrency  int
	Timeout      time.Duration // per attempt
	MaxRetries   int
	RetryBackoff time.Duration
	MaxChars     int
	MaxBodyBytes int64
	RateLimit    float64 // requests per second across all workers, 0 = unlimited
	UserAgent    string
}

// HTTPFetcher downloads pages under a concurrency limit. A failing URL never
// affects the others, and results keep input order.
type HTTPFetcher struct {
	client   *http.Client
	opts     Options
	policy   retry.Policy
	limiter  *rate.Limiter
	logger   zerolog.Logger
	progress func(done, total int)
}

func New(opts Options, logger zerolog.Logger) *HTTPFetcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = 50000
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 5 << 20
	}

	f := &HTTPFetcher{
		client: &http.Client{},
		opts:   opts,
		policy: retry.Policy{
			MaxAttempts: opts.MaxRetries + 1,
			BaseDelay:   opts.RetryBackoff,
			Multiplier:  1,
		},
		logger: logger.With().Str("component", "fetcher").Logger(),
	}
	if opts.RateLimit > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return f
}

// OnProgress registers a callback invoked after each URL settles.
func (f *HTTPFetcher) OnProgress(fn func(done, total int)) {
	f.progress = fn
}

// FetchAll returns one result per URL in input order.
func (f *HTTPFetcher) FetchAll(ctx context.Context, urls []string) []domain.FetchResult {
	pages := f.FetchPages(ctx, urls)
	results := make([]domain.FetchResult, len(pages))
	for i, p := range pages {
		results[i] = domain.FetchResult{Text: p.Text, Success: p.Success}
	}
	return results
}

// FetchPages is FetchAll with the URL and truncation flag kept.
func (f *HTTPFetcher) FetchPages(ctx context.Context, urls []string) []domain.FetchedPage {
	pages := make([]domain.FetchedPage, len(urls))
	if len(urls) == 0 {
		return pages
	}

	var done atomic.Int64
	settle := func() {
		n := int(done.Add(1))
		if f.progress != nil {
			f.progress(n, len(urls))
		}
	}

	sem := semaphore.NewWeighted(int64(f.opts.Concurrency))
	var g errgroup.Group

	for i, u := range urls {
		pages[i].URL = u

		if !hasHTTPScheme(u) {
			f.logger.Debug().Str("url", u).Msg("rejecting url without http(s) scheme")
			settle()
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			// caller gave up; the rest stay failed
			for j := i; j < len(urls); j++ {
				pages[j].URL = urls[j]
				settle()
			}
			break
		}

		g.Go(func() error {
			defer sem.Release(1)
			pages[i] = f.fetchOne(ctx, u)
			settle()
			return nil
		})
	}

	g.Wait()
	return pages
}

func hasHTTPScheme(u string) bool {
	lower := strings.ToLower(u)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func (f *HTTPFetcher) fetchOne(ctx context.Context, u string) domain.FetchedPage {
	page := domain.FetchedPage{URL: u}

	var text string
	err := f.policy.Do(ctx, func(attempt int) error {
		var err error
		text, err = f.attempt(ctx, u)
		if err != nil {
			f.logger.Debug().Err(err).Str("url", u).Int("attempt", attempt+1).Msg("fetch attempt failed")
		}
		return err
	})
	if err != nil {
		f.logger.Warn().Err(err).Str("url", u).Msg("fetch failed")
		return page
	}

	page.Text, page.Truncated = truncate(text, f.opts.MaxChars)
	page.Success = true
	return page
}

func (f *HTTPFetcher) attempt(ctx context.Context, u string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("%w: %v", domain.ErrInvalidURL, err))
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("HTTP %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusRequestTimeout {
			return "", retry.Permanent(err)
		}
		return "", err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return "", err
	}

	return toText(resp.Header.Get("Content-Type"), body)
}

var errUnsupportedContent = errors.New("unsupported content type")

func toText(contentType string, body []byte) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "" {
		mediaType, _, _ = mime.ParseMediaType(http.DetectContentType(body))
	}

	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		return ExtractText(bytes.NewReader(body))
	case strings.HasPrefix(mediaType, "text/"),
		mediaType == "application/json",
		mediaType == "application/xml":
		if !utf8.Valid(body) {
			return strings.ToValidUTF8(string(body), ""), nil
		}
		return string(body), nil
	default:
		return "", retry.Permanent(fmt.Errorf("%w: %s", errUnsupportedContent, mediaType))
	}
}

// truncate cuts s to maxChars runes and appends TruncationMarker.
func truncate(s string, maxChars int) (string, bool) {
	if utf8.RuneCountInString(s) <= maxChars {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:maxChars]) + TruncationMarker, true
}
