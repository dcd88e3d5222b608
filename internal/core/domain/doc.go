// Package domain defines the core business entities for the sync engine.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Row / RecordBatch / RecordSet: Vendor-normalised records bound for
//     warehouse tables, parents ordered before children
//   - TableSpec: A table identity plus its upsert conflict contract
//   - SyncState: The persisted high-water mark for one sync domain
//   - RunStats: The outcome of one job run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
