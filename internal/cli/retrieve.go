package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ragsearch/internal/app"
)

var (
	retrieveQuery   string
	retrieveTopK    int
	retrieveJSON    bool
	retrieveContext bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Query stored passages without searching the web",
	Long: `Embed a query and return the most similar passages already in the
vector collection.

Examples:
  ragsearch retrieve -q "memory consolidation during sleep"
  ragsearch retrieve -q "memory consolidation" -k 10 --json
  ragsearch retrieve -q "memory consolidation" --context`,
	RunE: runRetrieve,
}

func init() {
	rootCmd.AddCommand(retrieveCmd)
	retrieveCmd.Flags().StringVarP(&retrieveQuery, "query", "q", "", "search query (required)")
	retrieveCmd.Flags().IntVarP(&retrieveTopK, "top-k", "k", 0, "number of passages (default from config)")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output as JSON")
	retrieveCmd.Flags().BoolVar(&retrieveContext, "context", false, "print the rendered context block")
	retrieveCmd.MarkFlagRequired("query")
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, app.Options{Bootstrap: true})
	if err != nil {
		return err
	}
	defer a.Close()

	passages := a.Retrieve.Retrieve(ctx, retrieveQuery, retrieveTopK)

	out := cmd.OutOrStdout()
	switch {
	case retrieveJSON:
		return writeJSON(out, passages)
	case retrieveContext:
		fmt.Fprint(out, a.Retrieve.RenderContext(passages))
	default:
		printPassages(out, retrieveQuery, passages)
	}
	return nil
}
