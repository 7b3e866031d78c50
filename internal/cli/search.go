package cli

import (
	"os"

	"github.com/spf13/cobra"

	"ragsearch/internal/app"
	"ragsearch/internal/usecase"
)

var (
	searchQuery       string
	searchPage        int
	searchPerPage     int
	searchTopK        int
	searchJSON        bool
	searchNoSummary   bool
	searchShowContext bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the web, store new sources and assemble an answer",
	Long: `Run the full pipeline for a query: web search, page fetching, ingestion
into the vector collection, retrieval of related stored passages and, when
enabled, a cited summary. Later pages of the same query reuse the cached
source list, so citation numbers never change between pages.

Examples:
  ragsearch search -q "effects of sleep on memory"
  ragsearch search -q "effects of sleep on memory" --page 2 --per-page 5
  ragsearch search -q "crispr off-target effects" --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchPage, "page", "p", 1, "result page")
	searchCmd.Flags().IntVar(&searchPerPage, "per-page", 0, "sources per page (default from config)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "stored passages to retrieve (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.Flags().BoolVar(&searchNoSummary, "no-summary", false, "skip the summarizer even when enabled")
	searchCmd.Flags().BoolVar(&searchShowContext, "context", false, "print the retrieved context block")
	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, app.Options{Search: true, Bootstrap: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if !searchJSON {
		a.Fetcher.OnProgress(newFetchBar(os.Stderr))
	}

	resp, err := a.Query.Execute(ctx, usecase.QueryRequest{
		Query:     searchQuery,
		Page:      searchPage,
		PerPage:   searchPerPage,
		TopK:      searchTopK,
		Summarize: cfg.Summarize.Enabled && !searchNoSummary,
	})
	if err != nil {
		return err
	}

	if searchJSON {
		return writeJSON(cmd.OutOrStdout(), resp)
	}
	printResponse(cmd.OutOrStdout(), resp, searchShowContext)
	return nil
}
