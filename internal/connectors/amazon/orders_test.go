package amazon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/stratus-sync/internal/core/domain"
)

func testNow() time.Time {
	return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
}

func TestNewOrders_RequiresCredentials(t *testing.T) {
	_, err := NewOrders(Config{MarketplaceIDs: []string{"A1"}})
	assert.True(t, errors.Is(err, domain.ErrMissingCredentials))

	_, err = NewOrders(Config{AccessToken: "token"})
	assert.True(t, errors.Is(err, domain.ErrMissingCredentials))
}

func TestPages_TokenPaginationWithLineItems(t *testing.T) {
	var orderCalls, itemCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/orders/v0/orders", func(w http.ResponseWriter, r *http.Request) {
		orderCalls++
		switch r.URL.Query().Get("NextToken") {
		case "":
			assert.NotEmpty(t, r.URL.Query().Get("LastUpdatedAfter"))
			fmt.Fprint(w, `{"payload": {"Orders": [
				{"AmazonOrderId": "111-1", "OrderStatus": "Shipped",
				 "PurchaseDate": "2026-08-01T10:00:00Z",
				 "OrderTotal": {"Amount": "25.00", "CurrencyCode": "EUR"}}
			], "NextToken": "tok-2"}}`)
		case "tok-2":
			// Filters must not be repeated alongside the token.
			assert.Empty(t, r.URL.Query().Get("LastUpdatedAfter"))
			fmt.Fprint(w, `{"payload": {"Orders": [
				{"AmazonOrderId": "111-2", "OrderStatus": "Pending",
				 "PurchaseDate": "2026-08-02T11:00:00Z"}
			]}}`)
		default:
			t.Errorf("unexpected token %q", r.URL.Query().Get("NextToken"))
		}
	})
	mux.HandleFunc("/orders/v0/orders/", func(w http.ResponseWriter, r *http.Request) {
		itemCalls++
		fmt.Fprint(w, `{"payload": {"OrderItems": [
			{"SellerSKU": "SKU-A", "QuantityOrdered": 2,
			 "ItemPrice": {"Amount": "12.50"}, "ItemTax": {"Amount": "2.08"}}
		]}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	h, err := NewOrders(Config{
		Endpoint:       server.URL,
		AccessToken:    "token",
		MarketplaceIDs: []string{"A1PA6795UKMFR9"},
	})
	require.NoError(t, err)

	ctx := context.Background()
	iter := h.Pages(ctx, h.Window(nil, testNow()))

	var raws []json.RawMessage
	for {
		page, err := iter.Next(ctx)
		require.NoError(t, err)
		if page == nil {
			break
		}
		raws = append(raws, page.Items...)
	}

	assert.Equal(t, 2, orderCalls)
	assert.Equal(t, 2, itemCalls)
	require.Len(t, raws, 2)

	set, err := h.Normalize(raws)
	require.NoError(t, err)
	require.Len(t, set, 2)

	orders, lineItems := set[0], set[1]
	require.Len(t, orders.Rows, 2)
	assert.Equal(t, "111-1", orders.Rows[0]["order_id"])
	assert.Equal(t, "amazon", orders.Rows[0]["source"])
	assert.Equal(t, 25.00, orders.Rows[0]["total"])
	assert.Equal(t, "EUR", orders.Rows[0]["currency"])

	require.Len(t, lineItems.Rows, 2)
	assert.Equal(t, "SKU-A", lineItems.Rows[0]["sku"])
	assert.Equal(t, 2, lineItems.Rows[0]["qty"])
	assert.Equal(t, 12.50, lineItems.Rows[0]["price"])
	assert.Equal(t, 2.08, lineItems.Rows[0]["tax"])
}

func TestNormalize_SkipsItemsWithoutSKU(t *testing.T) {
	h, err := NewOrders(Config{AccessToken: "token", MarketplaceIDs: []string{"A1"}})
	require.NoError(t, err)

	set, err := h.Normalize([]json.RawMessage{json.RawMessage(`{
		"AmazonOrderId": "111-3", "OrderStatus": "Shipped",
		"PurchaseDate": "2026-08-01T10:00:00Z",
		"OrderItems": [{"QuantityOrdered": 1}, {"SellerSKU": "B", "QuantityOrdered": 3}]
	}`)})
	require.NoError(t, err)
	assert.Len(t, set[0].Rows, 1)
	require.Len(t, set[1].Rows, 1)
	assert.Equal(t, "B", set[1].Rows[0]["sku"])
}
