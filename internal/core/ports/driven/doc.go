// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Handler: A typed per-domain vendor adapter (fetch, normalise, validate)
//   - PageIter: A lazy sequence of raw vendor pages
//   - Upserter: Set-based insert-or-update into one warehouse table
//   - SyncStateStore: Per-domain high-water mark and run status persistence
//
// # Optional Interfaces
//
//   - BatchReducer: Per-domain duplicate-key merge applied before upsert
//   - WindowPlanner: Per-domain override of the default fetch window
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
