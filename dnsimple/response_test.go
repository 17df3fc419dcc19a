package dnsimple

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapResponseSuccess(t *testing.T) {
	body := []byte(`{"data":[{"id":1},{"id":2}],"pagination":{"current_page":1,"per_page":2,"total_entries":3,"total_pages":2}}`)

	resp, err := mapResponse[[]Certificate](http.StatusOK, body)
	require.NoError(t, err)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, int64(1), resp.Data[0].ID)
	require.NotNil(t, resp.Pagination)
	assert.Equal(t, 2, resp.Pagination.TotalPages)
	assert.True(t, resp.HasMorePages())
}

func TestMapResponseWithoutPagination(t *testing.T) {
	resp, err := mapResponse[Certificate](http.StatusOK, []byte(`{"data":{"id":7}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(7), resp.Data.ID)
	assert.Nil(t, resp.Pagination)
	assert.False(t, resp.HasMorePages())
}

func TestMapResponseEmptyBody(t *testing.T) {
	resp, err := mapResponse[Certificate](http.StatusNoContent, nil)
	require.NoError(t, err)
	assert.Equal(t, Certificate{}, resp.Data)
}

func TestMapResponseMalformed(t *testing.T) {
	resp, err := mapResponse[Certificate](http.StatusOK, []byte(`{"data":`))
	require.Error(t, err)
	assert.Nil(t, resp)

	var malformed *MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, http.StatusOK, malformed.StatusCode)
	assert.Equal(t, `{"data":`, malformed.Body)

	var syntaxErr *json.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestMapResponseErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantDesc    string
		sentinel    error
	}{
		{
			name:        "not found",
			status:      http.StatusNotFound,
			body:        `{"message":"Certificate ` + "`0`" + ` not found","description":"Not found"}`,
			wantMessage: "Certificate `0` not found",
			wantDesc:    "Not found",
			sentinel:    ErrNotFound,
		},
		{
			name:        "unauthorized",
			status:      http.StatusUnauthorized,
			body:        `{"message":"Authentication failed"}`,
			wantMessage: "Authentication failed",
			sentinel:    ErrUnauthorized,
		},
		{
			name:        "forbidden",
			status:      http.StatusForbidden,
			body:        `{"message":"Permission denied"}`,
			wantMessage: "Permission denied",
			sentinel:    ErrUnauthorized,
		},
		{
			name:        "unprocessable",
			status:      http.StatusUnprocessableEntity,
			body:        `{"message":"Validation failed"}`,
			wantMessage: "Validation failed",
			sentinel:    ErrValidation,
		},
		{
			name:        "html body falls back to status line",
			status:      http.StatusBadGateway,
			body:        `<html>bad gateway</html>`,
			wantMessage: "502 Bad Gateway",
		},
		{
			name:        "empty body falls back to status line",
			status:      http.StatusInternalServerError,
			body:        ``,
			wantMessage: "500 Internal Server Error",
		},
		{
			name:        "errors with an unexpected shape keep the message",
			status:      http.StatusBadRequest,
			body:        `{"message":"Validation failed","description":"Invalid attributes","errors":["name is invalid"]}`,
			wantMessage: "Validation failed",
			wantDesc:    "Invalid attributes",
			sentinel:    ErrValidation,
		},
		{
			name:        "non-string message keeps the description",
			status:      http.StatusNotFound,
			body:        `{"message":{"text":"gone"},"description":"Not found"}`,
			wantMessage: "404 Not Found",
			wantDesc:    "Not found",
			sentinel:    ErrNotFound,
		},
		{
			name:        "redirects are not success",
			status:      http.StatusFound,
			body:        `{"data":{}}`,
			wantMessage: "302 Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := mapResponse[Certificate](tt.status, []byte(tt.body))
			require.Error(t, err)
			assert.Nil(t, resp)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.wantDesc, apiErr.Description)

			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
		})
	}
}

func TestMapResponseAttributeErrors(t *testing.T) {
	body := `{"message":"Validation failed","errors":{"name":["is invalid"],"contact_id":["can't be blank"]}}`
	_, err := mapResponse[Certificate](http.StatusBadRequest, []byte(body))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, map[string][]string{
		"name":       {"is invalid"},
		"contact_id": {"can't be blank"},
	}, apiErr.AttributeErrors)

	_, err = mapResponse[Certificate](http.StatusBadRequest, []byte(`{"message":"Validation failed","errors":"name is invalid"}`))
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Validation failed", apiErr.Message)
	assert.Nil(t, apiErr.AttributeErrors)
}

func TestAPIErrorHelpers(t *testing.T) {
	notFound := &APIError{StatusCode: http.StatusNotFound}
	assert.True(t, notFound.IsNotFound())
	assert.False(t, notFound.IsServerError())
	assert.NotErrorIs(t, notFound, ErrUnauthorized)

	server := &APIError{StatusCode: http.StatusServiceUnavailable}
	assert.True(t, server.IsServerError())
	assert.False(t, server.IsValidation())
	assert.NotErrorIs(t, server, ErrNotFound)
}

func TestAPIErrorMessage(t *testing.T) {
	err := newAPIError(http.StatusBadRequest, []byte(`{"message":"Validation failed","errors":{"name":["is invalid","is too long"],"contact_id":["can't be blank"]}}`))

	assert.Equal(t,
		"dnsimple API error: status 400: Validation failed (contact_id can't be blank; name is invalid, is too long)",
		err.Error())
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, []string{"is invalid", "is too long"}, err.AttributeErrors["name"])
}

func TestPaginationNextPage(t *testing.T) {
	var nilPagination *Pagination
	assert.False(t, nilPagination.HasMorePages())

	_, err := nilPagination.NextPage()
	assert.Error(t, err)

	p := &Pagination{CurrentPage: 1, TotalPages: 2}
	next, err := p.NextPage()
	require.NoError(t, err)
	assert.Equal(t, 2, next)

	p.CurrentPage = 2
	_, err = p.NextPage()
	assert.Error(t, err)
}
