package domain

// Canonical warehouse tables. Connectors normalise into these specs so
// the upsert engine stays schema-agnostic.

// OrdersTable holds orders from every sales channel, keyed by the
// channel's human-facing order identifier.
var OrdersTable = TableSpec{
	Name:            "orders",
	Columns:         []string{"order_id", "source", "purchase_date", "status", "customer_id", "total", "currency"},
	ConflictColumns: []string{"order_id"},
	UpdateColumns:   []string{"source", "purchase_date", "status", "customer_id", "total", "currency"},
}

// OrderItemsTable holds order line items, children of OrdersTable.
var OrderItemsTable = TableSpec{
	Name:            "order_items",
	Columns:         []string{"order_id", "sku", "qty", "price", "tax"},
	ConflictColumns: []string{"order_id", "sku"},
	UpdateColumns:   []string{"qty", "price", "tax"},
}

// OrderItemsRef ties a line item to its parent order within one run.
var OrderItemsRef = ParentRef{
	Column:       "order_id",
	ParentTable:  "orders",
	ParentColumn: "order_id",
}

// InventoryTable holds stock levels keyed by SKU and source system.
var InventoryTable = TableSpec{
	Name:            "inventory",
	Columns:         []string{"sku", "source", "fulfillment_center", "quantity_on_hand", "quantity_reserved", "quantity_incoming", "last_updated"},
	ConflictColumns: []string{"sku", "source"},
	UpdateColumns:   []string{"fulfillment_center", "quantity_on_hand", "quantity_reserved", "quantity_incoming", "last_updated"},
}
