// Package warehouse implements the relational warehouse adapters: the
// set-based upsert engine and the sync-state store. It speaks two
// dialects through one database/sql handle: PostgreSQL (production, via
// the pgx driver) and SQLite (local development and tests).
//
// Insert/update classification is computed by the database engine, never
// by a pre-read. PostgreSQL inspects row visibility (xmax = 0) through a
// RETURNING clause on the single upsert statement. SQLite has no
// equivalent marker, so its dialect substitutes two conflict-aware
// statements inside the batch transaction: an insert-or-ignore whose
// affected-row count is the inserted count, followed by the
// insert-or-update that applies the remaining rows.
package warehouse
