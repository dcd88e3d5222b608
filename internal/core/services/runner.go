package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/stratus-sync/internal/core/domain"
	"github.com/custodia-labs/stratus-sync/internal/core/ports/driven"
	"github.com/custodia-labs/stratus-sync/internal/core/ports/driving"
	"github.com/custodia-labs/stratus-sync/internal/logger"
)

// Ensure SyncService implements the interface.
var _ driving.SyncRunner = (*SyncService)(nil)

// RunnerConfig tunes the default incremental window for handlers that do
// not plan their own.
type RunnerConfig struct {
	// Overlap widens the window behind the high-water mark.
	Overlap time.Duration
	// Lookback bounds the first run of a never-synced domain.
	Lookback time.Duration
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	if c.Overlap <= 0 {
		c.Overlap = 5 * time.Minute
	}
	if c.Lookback <= 0 {
		c.Lookback = 30 * 24 * time.Hour
	}
	return c
}

// SyncService runs sync domains end to end. It is the single boundary
// that converts fetch, validation and persistence failures into a
// recorded error sync state; nothing below it is swallowed, nothing
// above it has to branch on error kind.
type SyncService struct {
	registry *Registry
	upserter driven.Upserter
	states   driven.SyncStateStore
	cfg      RunnerConfig
	now      func() time.Time
}

// NewSyncService creates a sync runner over the given registry and
// warehouse ports.
func NewSyncService(registry *Registry, upserter driven.Upserter, states driven.SyncStateStore, cfg RunnerConfig) *SyncService {
	return &SyncService{
		registry: registry,
		upserter: upserter,
		states:   states,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
	}
}

// Domains lists the registered sync domain names.
func (s *SyncService) Domains() []string {
	return s.registry.Names()
}

// Run executes one domain. Setup failures (unknown domain, sync state
// unreachable) are returned as errors; everything after mark-running is
// recorded in the sync state and reported through the stats.
func (s *SyncService) Run(ctx context.Context, name string) (*domain.RunStats, error) {
	handler, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}

	started := s.now().UTC()
	stats := &domain.RunStats{
		Domain: name,
		RunID:  uuid.NewString(),
	}

	if err := s.states.MarkRunning(ctx, name); err != nil {
		return nil, err
	}
	logger.Info("sync started: domain=%s run=%s", name, stats.RunID)

	set, err := s.collect(ctx, handler, stats)
	if err != nil {
		return s.fail(ctx, stats, started, err), nil
	}

	if reducer, ok := handler.(driven.BatchReducer); ok {
		set = reducer.Reduce(set)
	}

	if err := handler.Validate(set); err != nil {
		return s.fail(ctx, stats, started, err), nil
	}

	for table, n := range set.FilterOrphans() {
		logger.Warn("dropped %d orphaned rows from %s: domain=%s run=%s", n, table, name, stats.RunID)
		stats.Dropped += n
	}

	// Parents precede children in the record set; upserting in order
	// satisfies foreign keys.
	var result domain.UpsertResult
	for _, batch := range set {
		if len(batch.Rows) == 0 {
			continue
		}
		r, err := s.upserter.Upsert(ctx, batch)
		if err != nil {
			return s.fail(ctx, stats, started, err), nil
		}
		result.Add(r)
	}

	stats.Status = domain.StatusSuccess
	stats.Inserted = result.Inserted
	stats.Updated = result.Updated
	stats.Total = result.Inserted + result.Updated
	stats.Duration = s.now().UTC().Sub(started)

	meta := domain.Metadata{
		"run_id":      stats.RunID,
		"pages":       stats.Pages,
		"inserted":    stats.Inserted,
		"updated":     stats.Updated,
		"dropped":     stats.Dropped,
		"total":       stats.Total,
		"duration_ms": stats.Duration.Milliseconds(),
	}
	// The run start is the new high-water mark: anything updated while
	// the run was in flight falls inside the next window.
	if err := s.states.MarkSuccess(ctx, name, started, "", meta); err != nil {
		return s.fail(ctx, stats, started, err), nil
	}

	logger.Info("sync finished: domain=%s run=%s inserted=%d updated=%d dropped=%d pages=%d duration=%s",
		name, stats.RunID, stats.Inserted, stats.Updated, stats.Dropped, stats.Pages, stats.Duration)
	return stats, nil
}

// RunAll executes every registered domain in order. A failing domain is
// reported in its stats entry and never stops its siblings.
func (s *SyncService) RunAll(ctx context.Context) []domain.RunStats {
	names := s.registry.Names()
	all := make([]domain.RunStats, 0, len(names))

	for _, name := range names {
		stats, err := s.Run(ctx, name)
		if err != nil {
			all = append(all, domain.RunStats{
				Domain: name,
				Status: domain.StatusError,
				Error:  err.Error(),
			})
			continue
		}
		all = append(all, *stats)
	}
	return all
}

// collect fetches and normalises every page into one record set.
func (s *SyncService) collect(ctx context.Context, handler driven.Handler, stats *domain.RunStats) (domain.RecordSet, error) {
	window, err := s.window(ctx, handler)
	if err != nil {
		return nil, err
	}

	var set domain.RecordSet
	iter := handler.Pages(ctx, window)
	for {
		page, err := iter.Next(ctx)
		if err != nil {
			return nil, err
		}
		if page == nil {
			return set, nil
		}
		stats.Pages++

		batch, err := handler.Normalize(page.Items)
		if err != nil {
			return nil, err
		}
		set = set.Merge(batch)
	}
}

func (s *SyncService) window(ctx context.Context, handler driven.Handler) (domain.SyncWindow, error) {
	if handler.FullRefresh() {
		return domain.SyncWindow{Full: true}, nil
	}

	last, err := s.states.GetLastSync(ctx, handler.Domain())
	if err != nil {
		return domain.SyncWindow{}, err
	}
	if planner, ok := handler.(driven.WindowPlanner); ok {
		return planner.Window(last, s.now()), nil
	}
	return domain.ComputeWindow(last, s.cfg.Overlap, s.cfg.Lookback, s.now()), nil
}

// fail records the error state and folds the failure into the stats.
// The error itself stops here.
func (s *SyncService) fail(ctx context.Context, stats *domain.RunStats, started time.Time, cause error) *domain.RunStats {
	stats.Status = domain.StatusError
	stats.Error = cause.Error()
	stats.Duration = s.now().UTC().Sub(started)

	logger.Error("sync failed: domain=%s run=%s: %v", stats.Domain, stats.RunID, cause)
	if err := s.states.MarkError(ctx, stats.Domain, cause.Error()); err != nil {
		logger.Error("recording sync error for %s: %v", stats.Domain, err)
	}
	return stats
}
