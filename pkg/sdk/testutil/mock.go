// Package testutil provides testing utilities for the fullstori SDK.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockServer is an httptest server that routes on "METHOD /path" and
// counts calls per route.
type MockServer struct {
	*httptest.Server
	t *testing.T

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    map[string]int
}

// NewMockServer starts a mock server that is closed with the test.
func NewMockServer(t *testing.T) *MockServer {
	ms := &MockServer{
		t:        t,
		handlers: make(map[string]http.HandlerFunc),
		calls:    make(map[string]int),
	}
	ms.Server = httptest.NewServer(http.HandlerFunc(ms.handleRequest))
	t.Cleanup(ms.Close)
	return ms
}

// On registers a handler for a specific method and path.
func (ms *MockServer) On(method, path string, handler http.HandlerFunc) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.handlers[method+" "+path] = handler
}

// OnJSON registers a handler that returns JSON for a specific method and path.
func (ms *MockServer) OnJSON(method, path string, statusCode int, response any) {
	ms.On(method, path, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(ms.t, w, statusCode, response)
	})
}

// OnError registers a handler that returns the server's error envelope.
func (ms *MockServer) OnError(method, path string, statusCode int, code, message string, details map[string]any) {
	ms.OnJSON(method, path, statusCode, ErrorBody(code, message, details))
}

// Calls returns how many requests reached method and path.
func (ms *MockServer) Calls(method, path string) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.calls[method+" "+path]
}

func (ms *MockServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	ms.mu.Lock()
	handler, ok := ms.handlers[key]
	ms.calls[key]++
	ms.mu.Unlock()

	if !ok {
		ms.t.Logf("no handler registered for %s", key)
		http.NotFound(w, r)
		return
	}
	handler(w, r)
}

// ErrorBody builds the {"error": {...}} envelope the server returns.
func ErrorBody(code, message string, details map[string]any) map[string]any {
	e := map[string]any{"code": code, "message": message}
	if details != nil {
		e["details"] = details
	}
	return map[string]any{"error": e}
}

// WriteJSON writes status and a JSON body.
func WriteJSON(t *testing.T, w http.ResponseWriter, status int, data any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		require.NoError(t, json.NewEncoder(w).Encode(data))
	}
}

// DecodeBody decodes the request body into v.
func DecodeBody(t *testing.T, r *http.Request, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(r.Body).Decode(v))
}

// AssertJSONBody decodes the request body and compares it to expected.
func AssertJSONBody(t *testing.T, r *http.Request, expected any) {
	t.Helper()
	var actual any
	DecodeBody(t, r, &actual)

	want, err := json.Marshal(expected)
	require.NoError(t, err)
	got, err := json.Marshal(actual)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
}
