package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"ragsearch/internal/domain"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	titleColor   = color.New(color.Bold)
	urlColor     = color.New(color.FgHiBlack)
	scoreColor   = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResponse(w io.Writer, resp *domain.SearchResponse, showContext bool) {
	headingColor.Fprintf(w, "Results for: %s\n\n", resp.Query)

	if resp.KnowledgeGraph != "" {
		titleColor.Fprintln(w, "Overview from search")
		fmt.Fprintf(w, "%s\n\n", resp.KnowledgeGraph)
	}
	if resp.Overview != "" {
		titleColor.Fprintln(w, "Summary")
		fmt.Fprintf(w, "%s\n\n", resp.Overview)
	}

	titleColor.Fprintln(w, "Sources")
	if len(resp.Page.Candidates) == 0 {
		warnColor.Fprintln(w, "  No sources on this page.")
	}
	for _, c := range resp.Page.Candidates {
		titleColor.Fprintf(w, "[%d] %s\n", c.SourceNumber, c.Title)
		urlColor.Fprintf(w, "    %s\n", c.URL)
		if c.Snippet != "" {
			fmt.Fprintf(w, "    %s\n", c.Snippet)
		}
		fmt.Fprintln(w)
	}

	if showContext && resp.RAGContext != "" {
		fmt.Fprintln(w, resp.RAGContext)
	}

	p := resp.Page
	fmt.Fprintf(w, "Page %d, showing %d of %d sources", p.CurrentPage, len(p.Candidates), p.TotalAvailable)
	if p.HasNextPage {
		fmt.Fprintf(w, " (next: --page %d)", p.CurrentPage+1)
	}
	fmt.Fprintln(w)

	printIngestion(w, resp)
	urlColor.Fprintf(w, "Completed in %s\n", formatDuration(resp.ProcessingTime))
}

func printIngestion(w io.Writer, resp *domain.SearchResponse) {
	in := resp.Ingestion
	if resp.FetchedCount == 0 && in == (domain.IngestionSummary{}) {
		return
	}
	fmt.Fprintf(w, "Fetched %d pages; stored %d new sources (%d chunks), %d already known, %d skipped\n",
		resp.FetchedCount, in.Added, in.Chunks, in.Duplicates, in.Skipped)
}

func printPassages(w io.Writer, query string, passages []domain.RetrievedPassage) {
	if len(passages) == 0 {
		fmt.Fprintln(w, "No stored passages found.")
		return
	}
	headingColor.Fprintf(w, "Found %d passages for: %s\n\n", len(passages), query)
	for i, p := range passages {
		titleColor.Fprintf(w, "%d. %s ", i+1, p.Title)
		scoreColor.Fprintf(w, "(score: %.3f)\n", p.Score)
		urlColor.Fprintf(w, "   %s\n", p.URL)

		text := strings.ReplaceAll(p.Text, "\n", " ")
		if r := []rune(text); len(r) > 300 {
			text = string(r[:300]) + "..."
		}
		fmt.Fprintf(w, "   %s\n\n", text)
	}
}

// newFetchBar returns a progress callback drawing to w. The bar is created
// on the first call, once the total is known.
func newFetchBar(w io.Writer) func(done, total int) {
	var (
		mu    sync.Mutex
		bar   *progressbar.ProgressBar
		shown int
	)
	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Fetching[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(w)
				}),
			)
		}
		// callbacks from concurrent fetches can arrive out of order
		if done > shown {
			shown = done
			bar.Set(done)
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", m, s)
}
