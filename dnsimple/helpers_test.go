package dnsimple

import (
	"bufio"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixture is a recorded HTTP response loaded from testdata.
type fixture struct {
	status int
	header http.Header
	body   []byte
}

func loadFixture(t *testing.T, name string) fixture {
	t.Helper()

	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	defer f.Close()

	resp, err := http.ReadResponse(bufio.NewReader(f), nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return fixture{status: resp.StatusCode, header: resp.Header, body: body}
}

func (f fixture) write(w http.ResponseWriter) {
	for k, values := range f.header {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(f.status)
	_, _ = w.Write(f.body)
}

// recordedRequest captures what the client sent.
type recordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

type mockServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
}

func (m *mockServer) Requests() []recordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recordedRequest(nil), m.requests...)
}

// newMockServer replays fixtures in order, one per request. The last fixture
// is repeated once the list is exhausted.
func newMockServer(t *testing.T, fixtures ...string) *mockServer {
	t.Helper()

	loaded := make([]fixture, 0, len(fixtures))
	for _, name := range fixtures {
		loaded = append(loaded, loadFixture(t, name))
	}

	m := &mockServer{}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		m.mu.Lock()
		idx := len(m.requests)
		m.requests = append(m.requests, recordedRequest{
			Method:   r.Method,
			Path:     r.URL.EscapedPath(),
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     body,
		})
		m.mu.Unlock()

		if idx >= len(loaded) {
			idx = len(loaded) - 1
		}
		loaded[idx].write(w)
	}))
	t.Cleanup(m.Close)

	return m
}

func newTestClient(t *testing.T, server *mockServer, opts ...Option) *Client {
	t.Helper()

	opts = append([]Option{WithToken("test-token")}, opts...)
	client, err := NewClient(server.URL, opts...)
	require.NoError(t, err)
	return client
}
