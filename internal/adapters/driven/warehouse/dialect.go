package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/stratus-sync/internal/core/domain"
)

// dialect abstracts the two SQL dialects the store speaks. Conflict
// resolution is always native (ON CONFLICT), never check-then-insert;
// only the insert/update classification mechanism differs.
type dialect interface {
	name() string
	// placeholder returns the bind marker for the i-th parameter (1-based).
	placeholder(i int) string
	// upsertChunk executes the insert-or-update for one chunk of rows
	// inside tx and classifies each row as inserted or updated.
	upsertChunk(ctx context.Context, tx *sql.Tx, table domain.TableSpec, rows []domain.Row) (inserted, updated int, err error)
}

type postgresDialect struct{}

func (postgresDialect) name() string { return "postgres" }

func (postgresDialect) placeholder(i int) string { return "$" + strconv.Itoa(i) }

// upsertChunk issues one statement whose RETURNING clause inspects row
// visibility: xmax is zero only for rows created by this statement, so
// the classification is atomic with the conflict resolution itself.
func (d postgresDialect) upsertChunk(ctx context.Context, tx *sql.Tx, table domain.TableSpec, rows []domain.Row) (int, int, error) {
	query, args := buildUpsert(d, table, rows, true)
	query += " RETURNING (xmax = 0)"

	result, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, 0, err
	}
	defer result.Close()

	var inserted, updated int
	for result.Next() {
		var fresh bool
		if err := result.Scan(&fresh); err != nil {
			return 0, 0, err
		}
		if fresh {
			inserted++
		} else {
			updated++
		}
	}
	return inserted, updated, result.Err()
}

type sqliteDialect struct{}

func (sqliteDialect) name() string { return "sqlite" }

func (sqliteDialect) placeholder(int) string { return "?" }

// upsertChunk substitutes the xmax marker with two conflict-aware
// statements in the same transaction: the DO NOTHING insert's affected
// count is the inserted count, and the DO UPDATE pass applies new values
// to the remainder.
func (d sqliteDialect) upsertChunk(ctx context.Context, tx *sql.Tx, table domain.TableSpec, rows []domain.Row) (int, int, error) {
	insertQuery, insertArgs := buildUpsert(d, table, rows, false)
	res, err := tx.ExecContext(ctx, insertQuery, insertArgs...)
	if err != nil {
		return 0, 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, 0, err
	}
	inserted := int(affected)

	updateQuery, updateArgs := buildUpsert(d, table, rows, true)
	if _, err := tx.ExecContext(ctx, updateQuery, updateArgs...); err != nil {
		return 0, 0, err
	}

	return inserted, len(rows) - inserted, nil
}

// buildUpsert renders the multi-row INSERT ... ON CONFLICT statement.
// With update=false the conflict action is DO NOTHING.
func buildUpsert(d dialect, table domain.TableSpec, rows []domain.Row, update bool) (string, []any) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table.Name)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(table.Columns, ", "))
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(table.Columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j, col := range table.Columns {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(d.placeholder(p))
			p++
			args = append(args, row[col])
		}
		sb.WriteString(")")
	}

	sb.WriteString(" ON CONFLICT (")
	sb.WriteString(strings.Join(table.ConflictColumns, ", "))
	sb.WriteString(")")

	if !update {
		sb.WriteString(" DO NOTHING")
		return sb.String(), args
	}

	sb.WriteString(" DO UPDATE SET ")
	for i, col := range table.UpdateColumns {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s = excluded.%s", col, col)
	}
	return sb.String(), args
}
