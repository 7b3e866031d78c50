package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ragsearch/config"
	"ragsearch/internal/adapter/cache"
)

var cacheClearQuery string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the cached source lists",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every cached source list",
	Long: `Remove cached source lists. The next search for an affected query asks
the search provider again and may number its sources differently.

Examples:
  ragsearch cache clear
  ragsearch cache clear -q "effects of sleep on memory"`,
	RunE: runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheClearCmd.Flags().StringVarP(&cacheClearQuery, "query", "q", "", "forget only this query")
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	if err := config.EnsureDataDir(rootDir); err != nil {
		return err
	}
	c, err := cache.NewQueryCache(cfg.CachePath(rootDir), cfg.Cache.MaxEntries, cfg.CacheTTL())
	if err != nil {
		return err
	}
	defer c.Close()

	if cacheClearQuery != "" {
		if err := c.Delete(cacheClearQuery, cfg.Search.MaxResults); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Forgot cached sources for %q\n", cacheClearQuery)
		return nil
	}

	n := c.Size()
	if err := c.Clear(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached queries\n", n)
	return nil
}
