package amazon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/stratus-sync/internal/connectors/rest"
	"github.com/custodia-labs/stratus-sync/internal/core/domain"
	"github.com/custodia-labs/stratus-sync/internal/core/ports/driven"
)

// orderStatuses filters out draft orders the warehouse has no use for.
const orderStatuses = "Pending,Unshipped,PartiallyShipped,Shipped,Canceled,Unfulfillable"

// Ensure Orders implements the interfaces.
var (
	_ driven.Handler       = (*Orders)(nil)
	_ driven.WindowPlanner = (*Orders)(nil)
)

// Orders syncs Amazon SP-API orders and their line items. The orders
// endpoint paginates with a NextToken embedded in the response body and
// echoed back as a query parameter; line items come from a per-order
// sub-resource and are folded into each raw order before normalisation.
type Orders struct {
	cfg    Config
	client *rest.Client
}

// NewOrders creates the amazon_orders handler.
func NewOrders(cfg Config) (*Orders, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	client := rest.NewClient(
		rest.Config{
			BaseURL: cfg.Endpoint,
			Headers: map[string]string{
				"x-amz-access-token": cfg.AccessToken,
				"Content-Type":       "application/json",
			},
		},
		// SP-API order endpoints allow well under 1 rps sustained.
		rest.NewAdaptiveLimiter(rest.LimiterConfig{RequestsPerSecond: 0.5, Burst: 2}),
		rest.BodyToken{Key: "payload.NextToken", Param: "NextToken"},
		nil,
	)
	return &Orders{cfg: cfg, client: client}, nil
}

func (o *Orders) Domain() string { return "amazon_orders" }

func (o *Orders) FullRefresh() bool { return false }

// Window derives the fetch window from the high-water mark.
func (o *Orders) Window(last *time.Time, now time.Time) domain.SyncWindow {
	return domain.ComputeWindow(last, o.cfg.Overlap, o.cfg.Lookback, now)
}

func (o *Orders) Pages(ctx context.Context, w domain.SyncWindow) driven.PageIter {
	first := url.Values{
		"MarketplaceIds":    {strings.Join(o.cfg.MarketplaceIDs, ",")},
		"OrderStatuses":     {orderStatuses},
		"MaxResultsPerPage": {strconv.Itoa(o.cfg.PageSize)},
	}
	if !w.Full {
		first.Set("LastUpdatedAfter", w.Since.UTC().Format(time.RFC3339))
	}

	orders := o.client.Pages(ctx, &rest.Request{
		Method:         "GET",
		Path:           "/orders/v0/orders",
		FirstPageQuery: first,
		ItemsKey:       "payload.Orders",
	})
	return &ordersWithItems{handler: o, orders: orders}
}

// ordersWithItems decorates the orders page stream, attaching each
// order's line items under the key Normalize reads them from. One extra
// request per order, issued through the same rate limiter.
type ordersWithItems struct {
	handler *Orders
	orders  driven.PageIter
}

func (it *ordersWithItems) Next(ctx context.Context) (*driven.Page, error) {
	page, err := it.orders.Next(ctx)
	if page == nil || err != nil {
		return page, err
	}

	for i, raw := range page.Items {
		var order map[string]json.RawMessage
		if err := json.Unmarshal(raw, &order); err != nil {
			return nil, fmt.Errorf("decoding amazon order: %w", err)
		}

		var orderID string
		if rawID, ok := order["AmazonOrderId"]; ok {
			_ = json.Unmarshal(rawID, &orderID)
		}
		if orderID == "" {
			continue
		}

		items, err := it.handler.fetchOrderItems(ctx, orderID)
		if err != nil {
			return nil, err
		}
		order["OrderItems"], err = json.Marshal(items)
		if err != nil {
			return nil, err
		}
		page.Items[i], err = json.Marshal(order)
		if err != nil {
			return nil, err
		}
	}
	return page, nil
}

func (o *Orders) fetchOrderItems(ctx context.Context, orderID string) ([]json.RawMessage, error) {
	iter := o.client.Pages(ctx, &rest.Request{
		Method:   "GET",
		Path:     "/orders/v0/orders/" + url.PathEscape(orderID) + "/orderItems",
		ItemsKey: "payload.OrderItems",
	})

	var items []json.RawMessage
	for {
		page, err := iter.Next(ctx)
		if err != nil {
			return nil, err
		}
		if page == nil {
			return items, nil
		}
		items = append(items, page.Items...)
	}
}

type rawOrder struct {
	AmazonOrderID string `json:"AmazonOrderId"`
	PurchaseDate  string `json:"PurchaseDate"`
	OrderStatus   string `json:"OrderStatus"`
	BuyerEmail    string `json:"BuyerEmail"`
	OrderTotal    *struct {
		Amount       string `json:"Amount"`
		CurrencyCode string `json:"CurrencyCode"`
	} `json:"OrderTotal"`
	OrderItems []rawOrderItem `json:"OrderItems"`
}

type rawOrderItem struct {
	SellerSKU       string `json:"SellerSKU"`
	QuantityOrdered int    `json:"QuantityOrdered"`
	ItemPrice       *struct {
		Amount string `json:"Amount"`
	} `json:"ItemPrice"`
	ItemTax *struct {
		Amount string `json:"Amount"`
	} `json:"ItemTax"`
}

func (o *Orders) Normalize(items []json.RawMessage) (domain.RecordSet, error) {
	orders := domain.RecordBatch{Table: domain.OrdersTable}
	ref := domain.OrderItemsRef
	lineItems := domain.RecordBatch{Table: domain.OrderItemsTable, ParentRef: &ref}

	for _, raw := range items {
		var ord rawOrder
		if err := json.Unmarshal(raw, &ord); err != nil {
			return nil, fmt.Errorf("decoding amazon order: %w", err)
		}
		if ord.AmazonOrderID == "" {
			continue
		}

		var total any
		currency := ""
		if ord.OrderTotal != nil {
			total = parseAmount(ord.OrderTotal.Amount)
			currency = ord.OrderTotal.CurrencyCode
		}

		orders.Rows = append(orders.Rows, domain.Row{
			"order_id":      ord.AmazonOrderID,
			"source":        "amazon",
			"purchase_date": parseDate(ord.PurchaseDate),
			"status":        ord.OrderStatus,
			"customer_id":   ord.BuyerEmail,
			"total":         total,
			"currency":      currency,
		})

		for _, item := range ord.OrderItems {
			if item.SellerSKU == "" {
				continue
			}
			row := domain.Row{
				"order_id": ord.AmazonOrderID,
				"sku":      item.SellerSKU,
				"qty":      item.QuantityOrdered,
				"price":    nil,
				"tax":      nil,
			}
			if item.ItemPrice != nil {
				row["price"] = parseAmount(item.ItemPrice.Amount)
			}
			if item.ItemTax != nil {
				row["tax"] = parseAmount(item.ItemTax.Amount)
			}
			lineItems.Rows = append(lineItems.Rows, row)
		}
	}

	return domain.RecordSet{orders, lineItems}, nil
}

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

func parseDate(s string) any {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return t.UTC()
}
