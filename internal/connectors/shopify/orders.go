package shopify

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

// CallLimitHeader reports bucket usage as "used/limit".
const CallLimitHeader = "X-Shopify-Shop-Api-Call-Limit"

const orderFields = "id,name,created_at,updated_at,total_price,currency,customer,line_items,financial_status,fulfillment_status"

// Ensure Orders implements the interfaces.
var (
	_ driven.Handler       = (*Orders)(nil)
	_ driven.WindowPlanner = (*Orders)(nil)
)

// Orders syncs Shopify orders and their line items. Pagination follows
// the Link response header; filter parameters are only valid on the
// first request, before a page_info cursor is present.
type Orders struct {
	cfg    Config
	client *rest.Client
}

// NewOrders creates the shopify_orders handler.
func NewOrders(cfg Config) (*Orders, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	client := rest.NewClient(
		rest.Config{
			BaseURL: cfg.BaseURL(),
			Headers: map[string]string{
				"X-Shopify-Access-Token": cfg.AccessToken,
				"Content-Type":           "application/json",
			},
		},
		rest.NewAdaptiveLimiter(rest.LimiterConfig{RequestsPerSecond: 2, Burst: 4}),
		rest.HeaderLink{Header: "Link", Rel: "next", Param: "page_info"},
		rest.CallLimitUsage(CallLimitHeader),
	)
	return &Orders{cfg: cfg, client: client}, nil
}

func (o *Orders) Domain() string { return "shopify_orders" }

func (o *Orders) FullRefresh() bool { return false }

// Window derives the fetch window from the high-water mark.
func (o *Orders) Window(last *time.Time, now time.Time) domain.SyncWindow {
	return domain.ComputeWindow(last, o.cfg.Overlap, o.cfg.Lookback, now)
}

func (o *Orders) Pages(ctx context.Context, w domain.SyncWindow) driven.PageIter {
	first := url.Values{
		"status": {"any"},
		"fields": {orderFields},
	}
	if !w.Full {
		first.Set("updated_at_min", w.Since.UTC().Format(time.RFC3339))
	}

	return o.client.Pages(ctx, &rest.Request{
		Method:         "GET",
		Path:           "/orders.json",
		Query:          url.Values{"limit": {strconv.Itoa(o.cfg.PageSize)}},
		FirstPageQuery: first,
		ItemsKey:       "orders",
	})
}

type rawOrder struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	CreatedAt       time.Time  `json:"created_at"`
	TotalPrice      string     `json:"total_price"`
	Currency        string     `json:"currency"`
	FinancialStatus string     `json:"financial_status"`
	Customer        *struct {
		ID int64 `json:"id"`
	} `json:"customer"`
	LineItems []rawLineItem `json:"line_items"`
}

type rawLineItem struct {
	ID       int64  `json:"id"`
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

// Normalize flattens raw orders into order and order_item rows. The
// human-facing order name is preferred over the numeric internal ID as
// the natural key, matching what downstream reporting joins on.
func (o *Orders) Normalize(items []json.RawMessage) (domain.RecordSet, error) {
	orders := domain.RecordBatch{Table: domain.OrdersTable}
	ref := domain.OrderItemsRef
	lineItems := domain.RecordBatch{Table: domain.OrderItemsTable, ParentRef: &ref}

	for _, raw := range items {
		var ord rawOrder
		if err := json.Unmarshal(raw, &ord); err != nil {
			return nil, fmt.Errorf("decoding shopify order: %w", err)
		}

		orderID := ord.Name
		if orderID == "" {
			orderID = strconv.FormatInt(ord.ID, 10)
		}
		customerID := ""
		if ord.Customer != nil {
			customerID = strconv.FormatInt(ord.Customer.ID, 10)
		}

		orders.Rows = append(orders.Rows, domain.Row{
			"order_id":      orderID,
			"source":        "shopify",
			"purchase_date": ord.CreatedAt.UTC(),
			"status":        ord.FinancialStatus,
			"customer_id":   customerID,
			"total":         parseAmount(ord.TotalPrice),
			"currency":      ord.Currency,
		})

		for _, item := range ord.LineItems {
			// Line item ID stands in for a missing SKU to keep the
			// (order_id, sku) key unique.
			sku := item.SKU
			if sku == "" {
				sku = strconv.FormatInt(item.ID, 10)
			}
			lineItems.Rows = append(lineItems.Rows, domain.Row{
				"order_id": orderID,
				"sku":      sku,
				"qty":      item.Quantity,
				"price":    parseAmount(item.Price),
				"tax":      nil,
			})
		}
	}

	return domain.RecordSet{orders, lineItems}, nil
}

// Validate fails closed on structural contract violations.
func (o *Orders) Validate(set domain.RecordSet) error {
	for _, batch := range set {
		for _, row := range batch.Rows {
			switch batch.Table.Name {
			case domain.OrdersTable.Name:
				if row["order_id"] == "" {
					return &domain.ValidationError{Table: batch.Table.Name, Field: "order_id", Reason: "missing order identifier"}
				}
			case domain.OrderItemsTable.Name:
				if qty, ok := row["qty"].(int); ok && qty < 0 {
					return &domain.ValidationError{Table: batch.Table.Name, Field: "qty", Reason: "negative quantity"}
				}
			}
		}
	}
	return nil
}

func parseAmount(s string) any {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return v
}
