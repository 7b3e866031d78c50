package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ragsearch/internal/app"
)

var ingestQuery string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Search and store sources without building an answer",
	Long: `Search the web for a query, fetch every result page and store the
relevant, not yet known sources in the vector collection.

Examples:
  ragsearch ingest -q "transformer interpretability"`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVarP(&ingestQuery, "query", "q", "", "search query (required)")
	ingestCmd.MarkFlagRequired("query")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, app.Options{Search: true, Bootstrap: true})
	if err != nil {
		return err
	}
	defer a.Close()

	a.Fetcher.OnProgress(newFetchBar(os.Stderr))

	resp, err := a.Query.Ingest(ctx, ingestQuery)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	headingColor.Fprintf(out, "Ingested results for: %s\n", resp.Query)
	printIngestion(out, resp)

	n, err := a.Store.Count(ctx)
	if err == nil {
		fmt.Fprintf(out, "Collection %s now holds %d records\n", cfg.VectorStore.Collection, n)
	}
	urlColor.Fprintf(out, "Completed in %s\n", formatDuration(resp.ProcessingTime))
	return nil
}
