package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/stratus-sync/internal/core/domain"
)

func TestUpserter_ClassifiesAndOverwrites(t *testing.T) {
	up := NewUpserter()
	ctx := context.Background()

	table := domain.TableSpec{
		Name:            "orders",
		Columns:         []string{"order_id", "status"},
		ConflictColumns: []string{"order_id"},
		UpdateColumns:   []string{"status"},
	}

	result, err := up.Upsert(ctx, domain.RecordBatch{
		Table: table,
		Rows: []domain.Row{
			{"order_id": "o-1", "status": "open"},
			{"order_id": "o-2", "status": "open"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, result.Updated)

	result, err = up.Upsert(ctx, domain.RecordBatch{
		Table: table,
		Rows: []domain.Row{
			{"order_id": "o-1", "status": "fulfilled"},
			{"order_id": "o-3", "status": "open"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 3, up.Count("orders"))
}

func TestUpserter_DuplicateKeysInBatchCountOnce(t *testing.T) {
	up := NewUpserter()

	table := domain.TableSpec{
		Name:            "inventory",
		Columns:         []string{"sku", "qty"},
		ConflictColumns: []string{"sku"},
		UpdateColumns:   []string{"qty"},
	}

	result, err := up.Upsert(context.Background(), domain.RecordBatch{
		Table: table,
		Rows: []domain.Row{
			{"sku": "A", "qty": 1},
			{"sku": "A", "qty": 5},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 0, result.Updated)

	rows := up.Rows("inventory")
	require.Len(t, rows, 1)
	assert.Equal(t, 5, rows[0]["qty"])
}
