package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// timeRound keeps printed durations readable.
const timeRound = time.Millisecond

var healthMaxAge time.Duration

var healthCmd = &cobra.Command{
	Use:   "health [domain]",
	Short: "Check whether domains synced successfully within the max age",
	Long: `Reports per-domain health: a domain is healthy when its last run
succeeded within the --max-age window. Exits non-zero when any checked
domain is unhealthy, for use by external monitors.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHealth,
}

func init() {
	healthCmd.Flags().DurationVar(&healthMaxAge, "max-age", 24*time.Hour, "maximum age of the last successful sync")
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	ctx := cmd.Context()

	domains := args
	if len(domains) == 0 {
		domains = syncRunner.Domains()
	}

	var unhealthy int
	for _, name := range domains {
		ok, err := stateStore.IsHealthy(ctx, name, healthMaxAge)
		if err != nil {
			return err
		}
		state := "healthy"
		if !ok {
			state = "unhealthy"
			unhealthy++
		}
		cmd.Printf("%-20s %s\n", name, state)
	}

	if unhealthy > 0 {
		return fmt.Errorf("%d domain(s) unhealthy", unhealthy)
	}
	return nil
}
