package warehouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/stratus-sync/internal/core/domain"
	"github.com/custodia-labs/stratus-sync/internal/core/ports/driven"
	"github.com/custodia-labs/stratus-sync/internal/logger"
)

// defaultChunkSize keeps each statement comfortably inside vendor
// parameter-count limits for typical table widths.
const defaultChunkSize = 500

// maxBindParams is the conservative per-statement bind parameter budget
// (SQLite's historical limit; PostgreSQL allows far more).
const maxBindParams = 999

// Ensure UpsertEngine implements the interface.
var _ driven.Upserter = (*UpsertEngine)(nil)

// UpsertEngine performs idempotent set-based upserts. One call is one
// database transaction: every chunk commits together or not at all.
type UpsertEngine struct {
	store *Store
}

// Upsert inserts or updates batch.Rows into batch.Table and reports how
// many rows were created versus modified. Rows sharing a conflict key
// within the batch are collapsed to the last occurrence before the
// statement executes, so the table ends with one row per key holding the
// last-applied values.
func (e *UpsertEngine) Upsert(ctx context.Context, batch domain.RecordBatch) (domain.UpsertResult, error) {
	var result domain.UpsertResult

	if err := validateTable(batch.Table); err != nil {
		return result, err
	}

	rows := dedupeLastWins(batch.Table, batch.Rows)
	if len(rows) == 0 {
		return result, nil
	}
	if collapsed := len(batch.Rows) - len(rows); collapsed > 0 {
		logger.Debug("collapsed %d duplicate-key rows for %s", collapsed, batch.Table.Name)
	}

	chunk := e.store.chunkSize
	if limit := maxBindParams / len(batch.Table.Columns); limit < chunk {
		chunk = limit
	}
	if chunk < 1 {
		chunk = 1
	}

	tx, err := e.store.db.BeginTx(ctx, nil)
	if err != nil {
		return result, &PersistenceError{Table: batch.Table.Name, Err: err}
	}
	defer tx.Rollback()

	for start := 0; start < len(rows); start += chunk {
		end := start + chunk
		if end > len(rows) {
			end = len(rows)
		}

		inserted, updated, err := e.store.dialect.upsertChunk(ctx, tx, batch.Table, rows[start:end])
		if err != nil {
			return domain.UpsertResult{}, &PersistenceError{Table: batch.Table.Name, Err: err}
		}
		result.Inserted += inserted
		result.Updated += updated
	}

	if err := tx.Commit(); err != nil {
		return domain.UpsertResult{}, &PersistenceError{Table: batch.Table.Name, Err: err}
	}
	return result, nil
}

func validateTable(t domain.TableSpec) error {
	if t.Name == "" || len(t.Columns) == 0 {
		return fmt.Errorf("warehouse: incomplete table spec %q", t.Name)
	}
	if len(t.ConflictColumns) == 0 {
		return fmt.Errorf("warehouse: table %s has no conflict columns", t.Name)
	}
	if len(t.UpdateColumns) == 0 {
		return fmt.Errorf("warehouse: table %s has no update columns", t.Name)
	}
	cols := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		cols[c] = struct{}{}
	}
	for _, c := range append(append([]string{}, t.ConflictColumns...), t.UpdateColumns...) {
		if _, ok := cols[c]; !ok {
			return fmt.Errorf("warehouse: table %s references unknown column %s", t.Name, c)
		}
	}
	return nil
}

// dedupeLastWins collapses rows sharing a conflict key to the last
// occurrence, preserving first-seen order. A single multi-row ON
// CONFLICT DO UPDATE statement may not touch the same row twice, so the
// collapse must happen before the statement is built.
func dedupeLastWins(t domain.TableSpec, rows []domain.Row) []domain.Row {
	if len(rows) < 2 {
		return rows
	}

	seen := make(map[string]int, len(rows))
	out := make([]domain.Row, 0, len(rows))
	for _, row := range rows {
		key := conflictKey(t, row)
		if idx, ok := seen[key]; ok {
			out[idx] = row
			continue
		}
		seen[key] = len(out)
		out = append(out, row)
	}
	return out
}

func conflictKey(t domain.TableSpec, row domain.Row) string {
	parts := make([]string, len(t.ConflictColumns))
	for i, c := range t.ConflictColumns {
		parts[i] = fmt.Sprintf("%v", row[c])
	}
	return strings.Join(parts, "\x1f")
}
