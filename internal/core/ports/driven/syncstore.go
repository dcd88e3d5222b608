package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/stratus-sync/internal/core/domain"
)

// SyncStateStore persists per-domain sync progress. Every mark operation is
// a single atomic upsert keyed on the domain name, never a read-modify-write
// round trip, so racing processes converge to the last writer's state.
type SyncStateStore interface {
	// Get retrieves the full state for a domain, or domain.ErrNotFound.
	Get(ctx context.Context, name string) (*domain.SyncState, error)

	// All returns every sync state row, ordered by domain.
	All(ctx context.Context) ([]domain.SyncState, error)

	// GetLastSync returns the high-water mark of the last successful run,
	// or nil if the domain has never succeeded.
	GetLastSync(ctx context.Context, name string) (*time.Time, error)

	// MarkRunning records that a run has started. The previous high-water
	// mark and error count are preserved.
	MarkRunning(ctx context.Context, name string) error

	// MarkSuccess records a completed run: new high-water mark, optional
	// cursor, metadata, error count reset to zero.
	MarkSuccess(ctx context.Context, name string, at time.Time, cursor string, meta domain.Metadata) error

	// MarkError records a failed run. The error count increments inside
	// the statement's conflict path; the high-water mark is preserved.
	MarkError(ctx context.Context, name string, message string) error

	// IsHealthy reports whether the last run succeeded within maxAge.
	IsHealthy(ctx context.Context, name string, maxAge time.Duration) (bool, error)

	// CleanupErrors deletes error rows untouched for longer than horizon
	// and returns the number removed.
	CleanupErrors(ctx context.Context, horizon time.Duration) (int, error)
}
