package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ragsearch/internal/app"
)

var setupRecreate bool

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the vector collection",
	Long: `Create the vector collection sized for the configured embedding model.
An existing collection with a different size or metric is an error unless
--recreate is given, which drops it and every stored record.

Examples:
  ragsearch setup
  ragsearch setup --recreate`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
	setupCmd.Flags().BoolVar(&setupRecreate, "recreate", false, "drop and recreate the collection")
}

func runSetup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Collection.Setup(ctx, setupRecreate); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if setupRecreate {
		warnColor.Fprintf(out, "Dropped collection %s\n", cfg.VectorStore.Collection)
	}
	scoreColor.Fprintf(out, "Collection %s ready ", cfg.VectorStore.Collection)
	fmt.Fprintf(out, "(%s backend, %d dimensions, %s)\n", cfg.VectorStore.Backend, a.Embedder.Dimension(), cfg.VectorStore.Metric)
	return nil
}
