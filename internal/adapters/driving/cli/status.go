package cli

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the sync state of every domain",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	states, err := stateStore.All(cmd.Context())
	if err != nil {
		return err
	}
	if len(states) == 0 {
		cmd.Println("No domains have synced yet.")
		return nil
	}

	cmd.Printf("%-20s %-8s %-20s %-7s %s\n", "DOMAIN", "STATUS", "LAST SYNCED", "ERRORS", "MESSAGE")
	for _, s := range states {
		last := "never"
		if s.LastSyncedAt != nil {
			last = s.LastSyncedAt.UTC().Format("2006-01-02 15:04:05")
		}
		cmd.Printf("%-20s %-8s %-20s %-7d %s\n", s.Domain, s.Status, last, s.ErrorCount, s.ErrorMessage)
	}
	return nil
}
