package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/stratus-sync/internal/core/domain"
)

var syncCmd = &cobra.Command{
	Use:   "sync [domain]",
	Short: "Run sync domains against the warehouse",
	Long: `Runs one sync domain end to end, or every registered domain when no
name is given. A failing domain records an error sync state and never
stops its siblings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	ctx := cmd.Context()

	if len(args) == 1 {
		stats, err := syncRunner.Run(ctx, args[0])
		if err != nil {
			return err
		}
		printStats(cmd, *stats)
		if stats.Status == domain.StatusError {
			return fmt.Errorf("domain %s failed: %s", stats.Domain, stats.Error)
		}
		return nil
	}

	var failed int
	for _, stats := range syncRunner.RunAll(ctx) {
		printStats(cmd, stats)
		if stats.Status == domain.StatusError {
			failed++
		}
	}
	if failed > 0 {
		return errors.New("one or more domains failed")
	}
	return nil
}

func printStats(cmd *cobra.Command, s domain.RunStats) {
	if s.Status == domain.StatusError {
		cmd.Printf("%-20s %-8s %s\n", s.Domain, s.Status, s.Error)
		return
	}
	cmd.Printf("%-20s %-8s pages=%d inserted=%d updated=%d dropped=%d duration=%s\n",
		s.Domain, s.Status, s.Pages, s.Inserted, s.Updated, s.Dropped, s.Duration.Round(timeRound))
}
