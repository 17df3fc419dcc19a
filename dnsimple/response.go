package dnsimple

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Response is the envelope every successful DNSimple response uses.
// Pagination is only present on collection endpoints.
type Response[T any] struct {
	Data       T           `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// HasMorePages checks if there are more pages to fetch
func (r *Response[T]) HasMorePages() bool {
	return r.Pagination.HasMorePages()
}

// Pagination contains pagination information
type Pagination struct {
	CurrentPage  int `json:"current_page"`
	PerPage      int `json:"per_page"`
	TotalEntries int `json:"total_entries"`
	TotalPages   int `json:"total_pages"`
}

// HasMorePages reports whether a page after CurrentPage exists.
func (p *Pagination) HasMorePages() bool {
	return p != nil && p.CurrentPage < p.TotalPages
}

// NextPage returns the next page number, or an error if there are no more pages
func (p *Pagination) NextPage() (int, error) {
	if !p.HasMorePages() {
		return 0, fmt.Errorf("no more pages available")
	}
	return p.CurrentPage + 1, nil
}

// mapResponse turns a raw status and body into a typed envelope or an error.
// It has no side effects.
func mapResponse[T any](status int, body []byte) (*Response[T], error) {
	if status < 200 || status > 299 {
		return nil, newAPIError(status, body)
	}

	out := &Response[T]{}
	if len(bytes.TrimSpace(body)) == 0 {
		return out, nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return nil, &MalformedResponseError{
			StatusCode: status,
			Body:       string(body),
			Err:        err,
		}
	}
	return out, nil
}

// newAPIError decodes a DNSimple error body. Each field is decoded on its own
// so one unexpected value does not hide the others. When no message can be
// read the status line is used.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var fields map[string]json.RawMessage
	if len(bytes.TrimSpace(body)) > 0 && json.Unmarshal(body, &fields) == nil {
		_ = json.Unmarshal(fields["message"], &apiErr.Message)
		_ = json.Unmarshal(fields["description"], &apiErr.Description)

		var attributeErrors map[string][]string
		if json.Unmarshal(fields["errors"], &attributeErrors) == nil {
			apiErr.AttributeErrors = attributeErrors
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = statusLine(status)
	}
	return apiErr
}

func statusLine(status int) string {
	return strings.TrimSpace(fmt.Sprintf("%d %s", status, http.StatusText(status)))
}
