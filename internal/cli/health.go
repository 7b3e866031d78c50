package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ragsearch/internal/app"
	"ragsearch/internal/usecase"
)

var healthJSON bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the vector collection",
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().BoolVar(&healthJSON, "json", false, "output as JSON")
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	report := a.Collection.Health(ctx)

	out := cmd.OutOrStdout()
	if healthJSON {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		status := scoreColor
		if report.Status != usecase.StatusHealthy {
			status = warnColor
		}
		status.Fprintf(out, "Status:     %s\n", report.Status)
		fmt.Fprintf(out, "Backend:    %s (reachable: %v)\n", report.Backend, report.StoreReachable)
		fmt.Fprintf(out, "Collection: %s (exists: %v, records: %d)\n", report.Collection, report.CollectionExists, report.Records)
		fmt.Fprintf(out, "Embedding:  %s, %d dimensions\n", report.EmbeddingModel, report.EmbeddingDim)
		if report.Error != "" {
			warnColor.Fprintf(out, "Error:      %s\n", report.Error)
		}
	}

	if report.Status == usecase.StatusUnhealthy {
		return fmt.Errorf("vector store unavailable")
	}
	return nil
}
