package rest

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNextLink(t *testing.T) {
	header := `<https://shop.example.com/admin/api/orders.json?limit=50&page_info=abc123>; rel="next", ` +
		`<https://shop.example.com/admin/api/orders.json?limit=50&page_info=xyz>; rel="previous"`

	next := ParseNextLink(header, "next")
	assert.Equal(t, "https://shop.example.com/admin/api/orders.json?limit=50&page_info=abc123", next)

	assert.Empty(t, ParseNextLink("", "next"))
	assert.Empty(t, ParseNextLink(header, "last"))
}

func TestHeaderLink_Next(t *testing.T) {
	s := HeaderLink{Header: "Link", Rel: "next", Param: "page_info"}

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Link", `<https://shop.example.com/admin/orders.json?page_info=tok42&limit=5>; rel="next"`)
	assert.Equal(t, "tok42", s.Next(resp, nil))

	resp = &http.Response{Header: http.Header{}}
	assert.Empty(t, s.Next(resp, nil))
}

func TestHeaderLink_Apply(t *testing.T) {
	s := HeaderLink{Header: "Link", Rel: "next", Param: "page_info"}
	q := url.Values{}
	s.Apply(q, "tok42")
	assert.Equal(t, "tok42", q.Get("page_info"))
}

func TestBodyToken_NestedPath(t *testing.T) {
	s := BodyToken{Key: "payload.NextToken", Param: "NextToken"}

	body := []byte(`{"payload":{"Orders":[],"NextToken":"abc=="}}`)
	assert.Equal(t, "abc==", s.Next(nil, body))

	assert.Empty(t, s.Next(nil, []byte(`{"payload":{"Orders":[]}}`)))
	assert.Empty(t, s.Next(nil, []byte(`not json`)))

	q := url.Values{}
	s.Apply(q, "abc==")
	assert.Equal(t, "abc==", q.Get("NextToken"))
}

func TestCursorField_BareCursor(t *testing.T) {
	s := CursorField{Key: "next", Param: "Cursor"}
	assert.Equal(t, "c123", s.Next(nil, []byte(`{"items":[],"next":"c123"}`)))
	assert.Empty(t, s.Next(nil, []byte(`{"items":[],"next":null}`)))
	assert.Empty(t, s.Next(nil, []byte(`{"items":[]}`)))
}

func TestCursorField_URLCursor(t *testing.T) {
	s := CursorField{Key: "next", Param: "Cursor"}

	body := []byte(`{"next":"https://api.example.com/1.0/inventory?Cursor=deadbeef&Limit=50"}`)
	assert.Equal(t, "deadbeef", s.Next(nil, body))

	// Parameter casing in the next URL differs across vendors.
	body = []byte(`{"next":"https://api.example.com/1.0/inventory?cursor=deadbeef"}`)
	assert.Equal(t, "deadbeef", s.Next(nil, body))

	// URL without the cursor parameter yields no token rather than the raw URL.
	body = []byte(`{"next":"https://api.example.com/1.0/inventory?Limit=50"}`)
	assert.Empty(t, s.Next(nil, body))
}

func TestArrayAtPath(t *testing.T) {
	items, err := arrayAtPath([]byte(`{"orders":[{"id":1},{"id":2}]}`), "orders")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = arrayAtPath([]byte(`{"payload":{"Orders":[{"id":1}]}}`), "payload.Orders")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, err = arrayAtPath([]byte(`[{"id":1}]`), "")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	// Missing key is an empty page, not an error.
	items, err = arrayAtPath([]byte(`{"orders":[]}`), "results")
	require.NoError(t, err)
	assert.Nil(t, items)

	_, err = arrayAtPath([]byte(`{"orders":"nope"}`), "orders")
	assert.Error(t, err)
}
