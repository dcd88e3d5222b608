package rest

import (
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// TokenStrategy abstracts one vendor's pagination convention behind a
// uniform contract: apply a continuation token to the next request, and
// extract the following token from a response. An empty token ends the
// page stream.
type TokenStrategy interface {
	// Apply adds the continuation token to the outgoing query.
	Apply(q url.Values, token string)

	// Next extracts the continuation token from a response, or "" when
	// the stream is exhausted.
	Next(resp *http.Response, body []byte) string
}

// BodyToken handles vendors that embed an opaque token in the response
// body and expect it echoed back as a query parameter (e.g. Amazon's
// NextToken). Key is a dot-separated path into the JSON body.
type BodyToken struct {
	Key   string
	Param string
}

func (s BodyToken) Apply(q url.Values, token string) { q.Set(s.Param, token) }

func (s BodyToken) Next(_ *http.Response, body []byte) string {
	return stringAtPath(body, s.Key)
}

// HeaderLink handles vendors that return a "next" URL in a response
// header (e.g. Shopify's Link header) from which a continuation
// parameter must be parsed.
type HeaderLink struct {
	Header string // header name, e.g. "Link"
	Rel    string // relation, e.g. "next"
	Param  string // query parameter carrying the cursor, e.g. "page_info"
}

func (s HeaderLink) Apply(q url.Values, token string) { q.Set(s.Param, token) }

func (s HeaderLink) Next(resp *http.Response, _ []byte) string {
	next := ParseNextLink(resp.Header.Get(s.Header), s.Rel)
	if next == "" {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil {
		return ""
	}
	return u.Query().Get(s.Param)
}

// CursorField handles vendors that return a cursor value in the response
// body under a fixed key. The value may be a bare cursor or a full next
// URL carrying the cursor as a query parameter.
type CursorField struct {
	Key   string
	Param string
}

func (s CursorField) Apply(q url.Values, token string) { q.Set(s.Param, token) }

func (s CursorField) Next(_ *http.Response, body []byte) string {
	v := stringAtPath(body, s.Key)
	if v == "" {
		return ""
	}
	if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
		u, err := url.Parse(v)
		if err != nil {
			return ""
		}
		// Vendors are not consistent about parameter casing in the next
		// URL (e.g. Cursor accepted on requests, cursor returned).
		for param, vals := range u.Query() {
			if strings.EqualFold(param, s.Param) && len(vals) > 0 && vals[0] != "" {
				return vals[0]
			}
		}
		return ""
	}
	return v
}

// linkRegex matches Link header entries: <url>; rel="type".
var linkRegex = regexp.MustCompile(`<([^>]+)>;\s*rel="([^"]+)"`)

// ParseNextLink extracts the URL with the given relation from a Link
// header. Returns empty string if no such link is found.
func ParseNextLink(linkHeader, rel string) string {
	if linkHeader == "" {
		return ""
	}

	for _, part := range strings.Split(linkHeader, ",") {
		matches := linkRegex.FindStringSubmatch(strings.TrimSpace(part))
		if len(matches) == 3 && matches[2] == rel {
			return matches[1]
		}
	}

	return ""
}

// stringAtPath resolves a dot-separated path in a JSON object and returns
// the string value there, or "" if absent, null, or not a string.
func stringAtPath(body []byte, path string) string {
	cur := json.RawMessage(body)
	for _, key := range strings.Split(path, ".") {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(cur, &m); err != nil {
			return ""
		}
		next, ok := m[key]
		if !ok {
			return ""
		}
		cur = next
	}

	var s string
	if err := json.Unmarshal(cur, &s); err != nil {
		return ""
	}
	return s
}

// arrayAtPath resolves a dot-separated path to a JSON array of raw items.
// An empty path means the body itself is the array.
func arrayAtPath(body []byte, path string) ([]json.RawMessage, error) {
	cur := json.RawMessage(body)
	if path != "" {
		for _, key := range strings.Split(path, ".") {
			var m map[string]json.RawMessage
			if err := json.Unmarshal(cur, &m); err != nil {
				return nil, err
			}
			next, ok := m[key]
			if !ok {
				return nil, nil
			}
			cur = next
		}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(cur, &items); err != nil {
		return nil, err
	}
	return items, nil
}
