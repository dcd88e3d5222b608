package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderSet(orderIDs []string, childIDs []string) RecordSet {
	orders := RecordBatch{Table: OrdersTable}
	for _, id := range orderIDs {
		orders.Rows = append(orders.Rows, Row{"order_id": id})
	}

	ref := OrderItemsRef
	items := RecordBatch{Table: OrderItemsTable, ParentRef: &ref}
	for i, id := range childIDs {
		items.Rows = append(items.Rows, Row{"order_id": id, "sku": string(rune('A' + i))})
	}
	return RecordSet{orders, items}
}

func TestFilterOrphans(t *testing.T) {
	set := orderSet([]string{"A", "B"}, []string{"A", "B", "C"})

	dropped := set.FilterOrphans()

	assert.Equal(t, map[string]int{"order_items": 1}, dropped)
	assert.Len(t, set[1].Rows, 2)
	for _, row := range set[1].Rows {
		assert.NotEqual(t, "C", row["order_id"])
	}
}

func TestFilterOrphans_NoParentBatchDropsAll(t *testing.T) {
	ref := OrderItemsRef
	set := RecordSet{{
		Table:     OrderItemsTable,
		ParentRef: &ref,
		Rows:      []Row{{"order_id": "A", "sku": "S"}},
	}}

	dropped := set.FilterOrphans()
	assert.Equal(t, 1, dropped["order_items"])
	assert.Empty(t, set[0].Rows)
}

func TestFilterOrphans_NoRef(t *testing.T) {
	set := RecordSet{{Table: OrdersTable, Rows: []Row{{"order_id": "A"}}}}
	assert.Empty(t, set.FilterOrphans())
	assert.Len(t, set[0].Rows, 1)
}

func TestMerge_KeepsTableOrder(t *testing.T) {
	set := orderSet([]string{"A"}, []string{"A"})
	more := orderSet([]string{"B"}, nil)
	more = append(more, RecordBatch{Table: InventoryTable, Rows: []Row{{"sku": "S", "source": "shipbob"}}})

	merged := set.Merge(more)

	require.Len(t, merged, 3)
	assert.Equal(t, "orders", merged[0].Table.Name)
	assert.Len(t, merged[0].Rows, 2)
	assert.Equal(t, "order_items", merged[1].Table.Name)
	assert.Equal(t, "inventory", merged[2].Table.Name)
	assert.Equal(t, 4, merged.Len())
}

func TestUpsertResult_Add(t *testing.T) {
	r := UpsertResult{Inserted: 2, Updated: 1}
	r.Add(UpsertResult{Inserted: 1, Updated: 3})
	assert.Equal(t, UpsertResult{Inserted: 3, Updated: 4}, r)
}
