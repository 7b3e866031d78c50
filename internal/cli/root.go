package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ragsearch/config"
	"ragsearch/internal/app"
	"ragsearch/internal/logging"
)

var (
	cfgFile   string
	cfg       *config.Config
	rootDir   string
	verbose   bool
	logger    zerolog.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "ragsearch",
	Short: "Research search with retrieval-augmented context",
	Long: `ragsearch answers a research question from live web search results.
Each query fetches the result pages, stores new sources in a vector
collection, retrieves related passages collected by earlier queries and
assembles a numbered, citation-ready answer.

Example usage:
  ragsearch setup                              # Create the vector collection
  ragsearch search -q "sleep and memory"       # Search, ingest and answer
  ragsearch search -q "sleep and memory" -p 2  # Next page of the same sources
  ragsearch retrieve -q "memory consolidation" # Query stored passages only`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if err := godotenv.Load(filepath.Join(rootDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}

		logger, logCloser, err = logging.New(cfg.Logging, os.Stderr)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ragsearch.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "data directory (default is current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// openApp builds the pipeline for a command. The caller closes it.
func openApp(ctx context.Context, opts app.Options) (*app.App, error) {
	opts.Dir = rootDir
	return app.New(ctx, cfg, opts, logger)
}
