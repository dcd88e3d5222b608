package domain

import "time"

// SyncStatus is the lifecycle state recorded for a sync domain.
type SyncStatus string

const (
	// StatusRunning marks a sync that has started but not finished.
	StatusRunning SyncStatus = "running"

	// StatusSuccess marks the last run as completed.
	StatusSuccess SyncStatus = "success"

	// StatusError marks the last run as failed.
	StatusError SyncStatus = "error"
)

// SyncState is the persisted high-water mark and health record for one
// domain (e.g. "shopify_orders"). Exactly one row exists per domain after
// its first run.
type SyncState struct {
	Domain       string
	LastSyncedAt *time.Time
	LastSyncKey  string
	Status       SyncStatus
	ErrorCount   int
	ErrorMessage string
	Metadata     Metadata
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Healthy reports whether the state represents a recent successful sync.
func (s *SyncState) Healthy(now time.Time, maxAge time.Duration) bool {
	if s == nil || s.Status != StatusSuccess || s.LastSyncedAt == nil {
		return false
	}
	return now.Sub(*s.LastSyncedAt) < maxAge
}

// Metadata is the opaque per-run blob stored alongside sync state
// (counts, duration, run ID). Serialised as JSON.
type Metadata map[string]any

// SyncWindow bounds an incremental fetch. Full-refresh domains set Full
// and ignore Since.
type SyncWindow struct {
	Since time.Time
	Full  bool
}

// ComputeWindow derives the incremental fetch window from the high-water
// mark. The overlap re-fetches records updated just before the mark so
// late-arriving edits are not missed; defaultLookback bounds the first
// run of a domain that has never succeeded. Timestamps are aligned to the
// minute to keep successive windows from drifting.
func ComputeWindow(last *time.Time, overlap, defaultLookback time.Duration, now time.Time) SyncWindow {
	now = now.UTC().Truncate(time.Minute)

	if last == nil {
		return SyncWindow{Since: now.Add(-defaultLookback)}
	}

	since := last.UTC().Add(-overlap)
	if floor := now.Add(-defaultLookback); defaultLookback > 0 && since.Before(floor) {
		since = floor
	}
	return SyncWindow{Since: since.Truncate(time.Minute)}
}

// RunStats summarises one JobRunner invocation for a domain.
type RunStats struct {
	Domain   string
	RunID    string
	Status   SyncStatus
	Error    string
	Pages    int
	Inserted int
	Updated  int
	Dropped  int
	Total    int
	Duration time.Duration
}
