package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"ragsearch/internal/domain"
)

func init() {
	color.NoColor = true
}

func TestPrintResponse(t *testing.T) {
	resp := &domain.SearchResponse{
		Query:    "sleep",
		Overview: "Sleep helps memory [6].",
		Page: domain.PageResult{
			Candidates: []domain.Candidate{
				{Title: "Sixth", URL: "https://six.org", Snippet: "six", SourceNumber: 6},
			},
			TotalAvailable: 12,
			CurrentPage:    2,
			PerPage:        5,
			HasNextPage:    true,
		},
		Ingestion:    domain.IngestionSummary{Added: 3, Chunks: 9, Duplicates: 2, Skipped: 1},
		FetchedCount: 5,
	}

	var buf bytes.Buffer
	printResponse(&buf, resp, false)
	out := buf.String()

	for _, want := range []string{
		"Results for: sleep",
		"Sleep helps memory [6].",
		"[6] Sixth",
		"https://six.org",
		"Page 2, showing 1 of 12 sources (next: --page 3)",
		"stored 3 new sources (9 chunks), 2 already known, 1 skipped",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintPassagesEmpty(t *testing.T) {
	var buf bytes.Buffer
	printPassages(&buf, "sleep", nil)
	if !strings.Contains(buf.String(), "No stored passages found.") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m30s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
