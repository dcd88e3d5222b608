// Package driving defines the interfaces through which the outside world
// drives the sync engine.
//
// These are the "driving" or "primary" ports in hexagonal architecture.
// The CLI (and any external scheduler) depends on these interfaces, and
// core services implement them.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or service package
package driving
