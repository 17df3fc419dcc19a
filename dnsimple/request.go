package dnsimple

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

const apiVersion = "v2"

// QueryParam is a single query string entry.
type QueryParam struct {
	Key   string
	Value string
}

// QueryParams is an ordered list of query string entries. Unlike url.Values
// it keeps insertion order, so the encoded query is reproducible.
type QueryParams []QueryParam

// Add returns q with key=value appended. The value is formatted with fmt.Sprint.
func (q QueryParams) Add(key string, value any) QueryParams {
	return append(q, QueryParam{Key: key, Value: fmt.Sprint(value)})
}

// Has reports whether key is already present.
func (q QueryParams) Has(key string) bool {
	for _, p := range q {
		if p.Key == key {
			return true
		}
	}
	return false
}

// Get returns the first value for key.
func (q QueryParams) Get(key string) (string, bool) {
	for _, p := range q {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Encode percent-encodes the entries in order.
func (q QueryParams) Encode() string {
	if len(q) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, p := range q {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.Value))
	}
	return sb.String()
}

// Filters are server-side collection filters, e.g. {"name_like": "www"}.
type Filters map[string]string

// ListOptions controls paging, sorting and filtering of list endpoints.
type ListOptions struct {
	// Page is the 1-based page to request. nil leaves it to the server.
	Page *int
	// PerPage is the page size. nil leaves it to the server.
	PerPage *int
	// Sort is passed through verbatim, e.g. "expires_on:asc".
	Sort string
	// Filter entries are encoded after the named options, sorted by key.
	Filter Filters
	// Query holds extra parameters appended last. Keys that collide with
	// an option already set are dropped.
	Query QueryParams
}

// Int returns a pointer to v, for ListOptions.Page and PerPage.
func Int(v int) *int {
	return &v
}

// clone returns a shallow copy so callers' options are never modified.
func (o *ListOptions) clone() *ListOptions {
	if o == nil {
		return &ListOptions{}
	}
	c := *o
	return &c
}

// queryParams serializes the options in canonical order: page, per_page,
// sort, filters (sorted by key), then extra query entries in insertion order.
func (o *ListOptions) queryParams() QueryParams {
	if o == nil {
		return nil
	}

	var q QueryParams
	if o.Page != nil {
		q = q.Add("page", *o.Page)
	}
	if o.PerPage != nil {
		q = q.Add("per_page", *o.PerPage)
	}
	if o.Sort != "" {
		q = q.Add("sort", o.Sort)
	}

	if len(o.Filter) > 0 {
		keys := make([]string, 0, len(o.Filter))
		for k := range o.Filter {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !q.Has(k) {
				q = q.Add(k, o.Filter[k])
			}
		}
	}

	for _, p := range o.Query {
		if !q.Has(p.Key) {
			q = append(q, p)
		}
	}

	return q
}

// Request describes a single API call. It is built once per call and not
// modified afterwards.
type Request struct {
	Method string
	Path   string
	Query  QueryParams
	Body   any
}

// URL joins baseURL, the path and the encoded query.
func (r Request) URL(baseURL string) string {
	u := baseURL + r.Path
	if qs := r.Query.Encode(); qs != "" {
		u += "?" + qs
	}
	return u
}

// newRequest builds a Request for an already interpolated path.
func newRequest(method, path string, opts *ListOptions, body any) Request {
	return Request{
		Method: method,
		Path:   path,
		Query:  opts.queryParams(),
		Body:   body,
	}
}

// versioned prefixes a path with the API version: /v2/whoami.
func versioned(path string) string {
	return "/" + apiVersion + path
}

// accountPath prefixes a path with the account scope: /v2/1010/domains/...
func accountPath(accountID, path string) string {
	return versioned("/" + url.PathEscape(accountID) + path)
}
