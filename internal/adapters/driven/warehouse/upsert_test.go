package warehouse

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/stratus-sync/internal/core/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Config{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "warehouse.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var ordersTable = domain.TableSpec{
	Name:            "orders",
	Columns:         []string{"order_id", "source", "status", "total", "currency"},
	ConflictColumns: []string{"order_id"},
	UpdateColumns:   []string{"source", "status", "total", "currency"},
}

func orderRow(id, status string, total float64) domain.Row {
	return domain.Row{
		"order_id": id,
		"source":   "shopify",
		"status":   status,
		"total":    total,
		"currency": "USD",
	}
}

func TestUpsert_ClassifiesInsertsThenUpdates(t *testing.T) {
	store := openTestStore(t)
	engine := store.Upserter()
	ctx := context.Background()

	batch := domain.RecordBatch{
		Table: ordersTable,
		Rows: []domain.Row{
			orderRow("o-1", "open", 10.50),
			orderRow("o-2", "open", 22.00),
			orderRow("o-3", "open", 5.25),
		},
	}

	first, err := engine.Upsert(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Inserted)
	assert.Equal(t, 0, first.Updated)

	// Re-applying the identical batch must classify every row as an
	// update and leave the table unchanged.
	second, err := engine.Upsert(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 3, second.Updated)

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM orders").Scan(&count))
	assert.Equal(t, 3, count)
}

func TestUpsert_MixedBatch(t *testing.T) {
	store := openTestStore(t)
	engine := store.Upserter()
	ctx := context.Background()

	_, err := engine.Upsert(ctx, domain.RecordBatch{
		Table: ordersTable,
		Rows:  []domain.Row{orderRow("o-1", "open", 10.00)},
	})
	require.NoError(t, err)

	result, err := engine.Upsert(ctx, domain.RecordBatch{
		Table: ordersTable,
		Rows: []domain.Row{
			orderRow("o-1", "fulfilled", 10.00),
			orderRow("o-2", "open", 40.00),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Updated)

	var status string
	require.NoError(t, store.db.QueryRow(
		"SELECT status FROM orders WHERE order_id = ?", "o-1").Scan(&status))
	assert.Equal(t, "fulfilled", status)
}

func TestUpsert_DuplicateKeysLastWins(t *testing.T) {
	store := openTestStore(t)
	engine := store.Upserter()
	ctx := context.Background()

	result, err := engine.Upsert(ctx, domain.RecordBatch{
		Table: ordersTable,
		Rows: []domain.Row{
			orderRow("o-1", "open", 10.00),
			orderRow("o-1", "cancelled", 0),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 0, result.Updated)

	var status string
	require.NoError(t, store.db.QueryRow(
		"SELECT status FROM orders WHERE order_id = ?", "o-1").Scan(&status))
	assert.Equal(t, "cancelled", status)
}

func TestUpsert_EmptyBatch(t *testing.T) {
	store := openTestStore(t)
	engine := store.Upserter()

	result, err := engine.Upsert(context.Background(), domain.RecordBatch{Table: ordersTable})
	require.NoError(t, err)
	assert.Zero(t, result.Inserted)
	assert.Zero(t, result.Updated)
}

func TestUpsert_RejectsIncompleteSpec(t *testing.T) {
	store := openTestStore(t)
	engine := store.Upserter()
	ctx := context.Background()

	_, err := engine.Upsert(ctx, domain.RecordBatch{
		Table: domain.TableSpec{Name: "orders", Columns: []string{"order_id"}},
		Rows:  []domain.Row{{"order_id": "o-1"}},
	})
	assert.Error(t, err)

	_, err = engine.Upsert(ctx, domain.RecordBatch{
		Table: domain.TableSpec{
			Name:            "orders",
			Columns:         []string{"order_id"},
			ConflictColumns: []string{"order_id"},
			UpdateColumns:   []string{"missing_col"},
		},
		Rows: []domain.Row{{"order_id": "o-1"}},
	})
	assert.Error(t, err)
}

func TestUpsert_ChunksLargeBatches(t *testing.T) {
	store := openTestStore(t)
	engine := store.Upserter()
	ctx := context.Background()

	rows := make([]domain.Row, 0, 1200)
	for i := 0; i < 1200; i++ {
		rows = append(rows, orderRow("o-"+strconv.Itoa(i), "open", float64(i)))
	}

	result, err := engine.Upsert(ctx, domain.RecordBatch{Table: ordersTable, Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, 1200, result.Inserted)
	assert.Equal(t, 0, result.Updated)
}

func TestDedupeLastWins_PreservesOrder(t *testing.T) {
	rows := []domain.Row{
		{"order_id": "a", "status": "open"},
		{"order_id": "b", "status": "open"},
		{"order_id": "a", "status": "closed"},
	}

	out := dedupeLastWins(ordersTable, rows)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0]["order_id"])
	assert.Equal(t, "closed", out[0]["status"])
	assert.Equal(t, "b", out[1]["order_id"])
}
