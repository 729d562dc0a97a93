package cmd

import (
	"fmt"

	"imagepick/internal/logging"
	"imagepick/internal/mediastore"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index [directory]",
	Short: "Scan a directory tree into the media index",
	Long: `Walk a directory tree, probe every supported image for dimensions,
orientation and capture date, and upsert the results into the media
index. Files that disappeared since the last run are removed.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := mediastore.Open(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("opening media index: %w", err)
	}
	defer store.Close()

	scanner := mediastore.NewScanner(store, args[0])
	stats, err := scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", args[0], err)
	}

	logging.Info("indexed %d files (%d skipped, %d removed) in %s",
		stats.Indexed, stats.Skipped, stats.Removed, stats.Duration)
	return nil
}
