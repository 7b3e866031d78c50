package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ragsearch/internal/adapter/summarizer"
	"ragsearch/internal/app"
	"ragsearch/internal/usecase"
)

var (
	promptQuery  string
	promptSystem bool
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the summarization prompt for a query",
	Long: `Run search, ingestion and retrieval for a query and print the prompt the
summarizer would send, for use with any chat model by hand.

Examples:
  ragsearch prompt -q "effects of sleep on memory" > prompt.txt
  ragsearch prompt -q "effects of sleep on memory" --system`,
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVarP(&promptQuery, "query", "q", "", "search query (required)")
	promptCmd.Flags().BoolVar(&promptSystem, "system", false, "include the system instruction")
	promptCmd.MarkFlagRequired("query")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, app.Options{Search: true, Bootstrap: true})
	if err != nil {
		return err
	}
	defer a.Close()

	_, req, err := a.Query.Prepare(ctx, usecase.QueryRequest{Query: promptQuery, Page: 1})
	if err != nil {
		return err
	}

	prompt, err := summarizer.RenderPrompt(req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if promptSystem {
		fmt.Fprintf(out, "%s\n\n", summarizer.SystemPrompt())
	}
	fmt.Fprint(out, prompt)
	return nil
}
