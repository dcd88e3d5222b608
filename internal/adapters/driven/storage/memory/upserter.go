package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/stratus-sync/internal/core/domain"
	"github.com/custodia-labs/stratus-sync/internal/core/ports/driven"
)

// Ensure Upserter implements the interface.
var _ driven.Upserter = (*Upserter)(nil)

// Upserter is an in-memory implementation of driven.Upserter. Rows are
// held per table, keyed by their conflict columns, with the same
// last-write-wins semantics as the warehouse engine.
type Upserter struct {
	mu     sync.RWMutex
	tables map[string]map[string]domain.Row
}

// NewUpserter creates a new in-memory upserter.
func NewUpserter() *Upserter {
	return &Upserter{
		tables: make(map[string]map[string]domain.Row),
	}
}

// Upsert applies the batch and classifies each distinct key as inserted
// or updated.
func (u *Upserter) Upsert(_ context.Context, batch domain.RecordBatch) (domain.UpsertResult, error) {
	var result domain.UpsertResult
	if batch.Table.Name == "" || len(batch.Table.ConflictColumns) == 0 {
		return result, fmt.Errorf("memory: incomplete table spec %q", batch.Table.Name)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	table, ok := u.tables[batch.Table.Name]
	if !ok {
		table = make(map[string]domain.Row)
		u.tables[batch.Table.Name] = table
	}

	seen := make(map[string]bool, len(batch.Rows))
	for _, row := range batch.Rows {
		parts := make([]string, len(batch.Table.ConflictColumns))
		for i, col := range batch.Table.ConflictColumns {
			parts[i] = fmt.Sprintf("%v", row[col])
		}
		key := strings.Join(parts, "\x1f")

		if _, exists := table[key]; exists {
			if !seen[key] {
				result.Updated++
			}
		} else if !seen[key] {
			result.Inserted++
		}
		seen[key] = true
		table[key] = row
	}
	return result, nil
}

// Rows returns the stored rows for a table in unspecified order.
func (u *Upserter) Rows(table string) []domain.Row {
	u.mu.RLock()
	defer u.mu.RUnlock()
	rows := make([]domain.Row, 0, len(u.tables[table]))
	for _, row := range u.tables[table] {
		rows = append(rows, row)
	}
	return rows
}

// Count returns the number of stored rows for a table.
func (u *Upserter) Count(table string) int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.tables[table])
}
