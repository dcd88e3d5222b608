package driven

import (
	"context"
	"encoding/json"
	"time"

	"github.com/custodia-labs/stratus-sync/internal/core/domain"
)

// Page is one raw vendor page: zero or more undecoded items plus the
// continuation token for the next request. An empty token ends the stream.
type Page struct {
	Items []json.RawMessage
	Token string
}

// PageIter is a lazy, pull-based sequence of vendor pages. Next blocks for
// network I/O and any rate-limit or backoff sleeps; it returns nil when the
// stream is exhausted.
type PageIter interface {
	Next(ctx context.Context) (*Page, error)
}

// Handler is a typed per-domain vendor adapter. The registry maps each sync
// domain name to exactly one Handler at construction time; there is no
// runtime lookup by string beyond that map.
type Handler interface {
	// Domain returns the sync domain name, e.g. "shopify_orders".
	Domain() string

	// FullRefresh reports whether the domain re-fetches everything each
	// run instead of using the high-water mark.
	FullRefresh() bool

	// Pages starts a paginated fetch bounded by the sync window.
	Pages(ctx context.Context, w domain.SyncWindow) PageIter

	// Normalize converts one page of raw vendor items into record batches
	// with declared natural keys, parents before children.
	Normalize(items []json.RawMessage) (domain.RecordSet, error)

	// Validate checks structural invariants of the accumulated record set
	// and returns a *domain.ValidationError on violation.
	Validate(set domain.RecordSet) error
}

// WindowPlanner lets a handler derive its own fetch window from the
// high-water mark, e.g. to apply a vendor-specific overlap. Handlers
// without it get the runner's default window.
type WindowPlanner interface {
	Window(last *time.Time, now time.Time) domain.SyncWindow
}

// BatchReducer merges duplicate natural keys within one fetched batch.
// Handlers implement it when a vendor can deliver the same key more than
// once per run (e.g. one inventory row per fulfilment centre).
type BatchReducer interface {
	Reduce(set domain.RecordSet) domain.RecordSet
}
