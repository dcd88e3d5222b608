package shipbob

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/custodia-labs/stratus-sync/internal/connectors/rest"
	"github.com/custodia-labs/stratus-sync/internal/core/domain"
	"github.com/custodia-labs/stratus-sync/internal/core/ports/driven"
)

// Ensure Inventory implements the interfaces.
var (
	_ driven.Handler      = (*Inventory)(nil)
	_ driven.BatchReducer = (*Inventory)(nil)
)

// Inventory syncs current stock levels. A full snapshot is fetched each
// run; pagination carries a cursor under the body key "next", which some
// deployments return as a bare token and others as a full next-page URL.
type Inventory struct {
	cfg    Config
	client *rest.Client
	now    func() time.Time
}

// NewInventory creates the shipbob_inventory handler.
func NewInventory(cfg Config) (*Inventory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	client := rest.NewClient(
		rest.Config{
			BaseURL: cfg.BaseURL,
			Headers: map[string]string{
				"Authorization": "Bearer " + cfg.Token,
				"Content-Type":  "application/json",
			},
		},
		rest.NewAdaptiveLimiter(rest.LimiterConfig{RequestsPerSecond: 2, Burst: 2}),
		rest.CursorField{Key: "next", Param: "Cursor"},
		nil,
	)
	return &Inventory{cfg: cfg, client: client, now: time.Now}, nil
}

func (i *Inventory) Domain() string { return "shipbob_inventory" }

// FullRefresh is set: stock levels are a point-in-time snapshot, not an
// append-only stream.
func (i *Inventory) FullRefresh() bool { return true }

func (i *Inventory) Pages(ctx context.Context, _ domain.SyncWindow) driven.PageIter {
	return i.client.Pages(ctx, &rest.Request{
		Method:   "GET",
		Path:     "/inventory-level",
		Query:    url.Values{"Limit": {strconv.Itoa(i.cfg.PageSize)}},
		ItemsKey: "items",
	})
}

type rawLevel struct {
	SKU               string `json:"sku"`
	OnHandQuantity    int    `json:"total_on_hand_quantity"`
	CommittedQuantity int    `json:"total_committed_quantity"`
	AwaitingQuantity  int    `json:"total_awaiting_quantity"`
	FulfillmentCenter *struct {
		Name string `json:"name"`
	} `json:"fulfillment_center"`
}

func (i *Inventory) Normalize(items []json.RawMessage) (domain.RecordSet, error) {
	batch := domain.RecordBatch{Table: domain.InventoryTable}
	fetchedAt := i.now().UTC()

	for _, raw := range items {
		var level rawLevel
		if err := json.Unmarshal(raw, &level); err != nil {
			return nil, fmt.Errorf("decoding shipbob inventory level: %w", err)
		}
		if level.SKU == "" {
			continue
		}

		fc := ""
		if level.FulfillmentCenter != nil {
			fc = level.FulfillmentCenter.Name
		}
		batch.Rows = append(batch.Rows, domain.Row{
			"sku":                level.SKU,
			"source":             "shipbob",
			"fulfillment_center": fc,
			"quantity_on_hand":   level.OnHandQuantity,
			"quantity_reserved":  level.CommittedQuantity,
			"quantity_incoming":  level.AwaitingQuantity,
			"last_updated":       fetchedAt,
		})
	}
	return domain.RecordSet{batch}, nil
}

// Reduce folds duplicate SKUs reported by multiple fulfilment centres
// into one row: quantities are summed, non-numeric fields keep the last
// centre's values.
func (i *Inventory) Reduce(set domain.RecordSet) domain.RecordSet {
	for b := range set {
		if set[b].Table.Name != domain.InventoryTable.Name {
			continue
		}

		index := make(map[string]int)
		merged := set[b].Rows[:0]
		for _, row := range set[b].Rows {
			sku, _ := row["sku"].(string)
			at, ok := index[sku]
			if !ok {
				index[sku] = len(merged)
				merged = append(merged, row)
				continue
			}

			prev := merged[at]
			row["quantity_on_hand"] = intVal(prev["quantity_on_hand"]) + intVal(row["quantity_on_hand"])
			row["quantity_reserved"] = intVal(prev["quantity_reserved"]) + intVal(row["quantity_reserved"])
			row["quantity_incoming"] = intVal(prev["quantity_incoming"]) + intVal(row["quantity_incoming"])
			if fc, _ := row["fulfillment_center"].(string); fc == "" {
				row["fulfillment_center"] = prev["fulfillment_center"]
			}
			merged[at] = row
		}
		set[b].Rows = merged
	}
	return set
}

func (i *Inventory) Validate(set domain.RecordSet) error {
	for _, batch := range set {
		for _, row := range batch.Rows {
			if sku, _ := row["sku"].(string); sku == "" {
				return &domain.ValidationError{Table: batch.Table.Name, Field: "sku", Reason: "missing SKU"}
			}
			for _, col := range []string{"quantity_on_hand", "quantity_reserved", "quantity_incoming"} {
				if intVal(row[col]) < 0 {
					return &domain.ValidationError{Table: batch.Table.Name, Field: col, Reason: "negative quantity"}
				}
			}
		}
	}
	return nil
}

func intVal(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
