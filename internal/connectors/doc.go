// Package connectors holds the per-vendor sync handlers. Each vendor
// package implements driven.Handler on top of the shared rest client,
// mapping raw API payloads into the canonical warehouse tables.
//
// Handlers are wired into the compile-time registry at startup.
package connectors
