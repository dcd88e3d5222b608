// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The SyncService is the job runner: it resolves a domain handler from
// the Registry, computes the fetch window, drains the vendor's pages,
// validates and upserts the result, and records the outcome in the
// sync state store.
package services
