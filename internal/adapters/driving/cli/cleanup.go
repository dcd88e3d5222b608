package cli

import (
	"time"

	"github.com/spf13/cobra"
)

var cleanupOlderThan time.Duration

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete stale error sync states",
	Long: `Removes sync state rows stuck in error and untouched for longer than
--older-than. Success rows are never removed.`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().DurationVar(&cleanupOlderThan, "older-than", 7*24*time.Hour, "age of error rows to remove")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	removed, err := stateStore.CleanupErrors(cmd.Context(), cleanupOlderThan)
	if err != nil {
		return err
	}
	cmd.Printf("Removed %d stale error state(s).\n", removed)
	return nil
}
