package driving

import (
	"context"

	"github.com/custodia-labs/stratus-sync/internal/core/domain"
)

// SyncRunner sequences fetch, normalise, validate and upsert for sync
// domains. A failing domain is recorded in its sync state and reported in
// the returned stats; it never aborts sibling domains.
type SyncRunner interface {
	// Run executes one domain end to end. It returns an error only for
	// setup failures (unknown domain); steady-state run failures are
	// recorded as an error sync state and returned inside the stats.
	Run(ctx context.Context, name string) (*domain.RunStats, error)

	// RunAll executes every registered domain in order, isolating
	// failures at the domain boundary.
	RunAll(ctx context.Context) []domain.RunStats

	// Domains lists the registered sync domain names.
	Domains() []string
}
