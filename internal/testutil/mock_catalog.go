// Package testutil provides testing utilities for the Planet API client.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock catalog endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request seen by the mock server.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// MockCatalog is a configurable mock Planet catalog server for testing.
type MockCatalog struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	RequestCount     int
	ConditionalCount int
	Requests         []RecordedRequest
}

// NewMockCatalog creates and starts a new mock catalog server.
func NewMockCatalog() *MockCatalog {
	mock := &MockCatalog{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mock.mu.Lock()
		mock.RequestCount++
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		mock.Requests = append(mock.Requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found: " + r.URL.Path})
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.Requests = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCatalog) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockCatalog) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetPagedResults serves pages under key, chained through _links._next.
// Page n (1-based) is selected with the "cursor" query parameter.
func (m *MockCatalog) SetPagedResults(path, key string, pages ...[]any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		n, ok := pageNumber(w, r, len(pages))
		if !ok {
			return
		}

		body := map[string]any{key: nonNil(pages[n-1])}
		if n < len(pages) {
			body["_links"] = map[string]string{"_next": m.pageLink(path, n+1)}
		}
		writeJSON(w, http.StatusOK, body)
	})
}

// SetLinkedPages serves whole page bodies with links.prev and links.next.
// Page n (1-based) is selected with the "cursor" query parameter.
func (m *MockCatalog) SetLinkedPages(path, key string, pages ...[]any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		n, ok := pageNumber(w, r, len(pages))
		if !ok {
			return
		}

		links := map[string]string{}
		if n > 1 {
			links["prev"] = m.pageLink(path, n-1)
		}
		if n < len(pages) {
			links["next"] = m.pageLink(path, n+1)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"type":  "FeatureCollection",
			key:     nonNil(pages[n-1]),
			"links": links,
		})
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCatalog) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockCatalog) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetRequests returns a copy of the recorded requests.
func (m *MockCatalog) GetRequests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RecordedRequest(nil), m.Requests...)
}

func (m *MockCatalog) pageLink(path string, n int) string {
	return fmt.Sprintf("%s%s?cursor=%d", m.server.URL, path, n)
}

func pageNumber(w http.ResponseWriter, r *http.Request, total int) (int, bool) {
	n := 1
	if c := r.URL.Query().Get("cursor"); c != "" {
		var err error
		n, err = strconv.Atoi(c)
		if err != nil || n < 1 || n > total {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid cursor " + c})
			return 0, false
		}
	}
	if total == 0 {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "no pages configured"})
		return 0, false
	}
	return n, true
}

func nonNil(items []any) []any {
	if items == nil {
		return []any{}
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// NewJSONResponse creates a 200 OK response with caching headers.
func NewJSONResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"X-RateLimit-Limit":     "10",
			"X-RateLimit-Remaining": "100",
			"X-RateLimit-Reset":     "60",
			"ETag":                  `"test-etag-123"`,
			"Cache-Control":         "max-age=300",
			"Content-Type":          "application/json",
		},
	}
}

// NewErrorResponse creates an error response with a JSON message.
func NewErrorResponse(status int, message string) MockResponse {
	body, _ := json.Marshal(map[string]string{"message": message})
	return MockResponse{
		StatusCode: status,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter int) MockResponse {
	resp := NewErrorResponse(http.StatusTooManyRequests, "rate limit exceeded")
	resp.Headers["Retry-After"] = strconv.Itoa(retryAfter)
	resp.Headers["X-RateLimit-Remaining"] = "0"
	return resp
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return NewErrorResponse(http.StatusInternalServerError, "internal server error")
}

// NewConditionalHandler creates a handler that responds with 304 for conditional requests.
func NewConditionalHandler(etag string, data string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.Header.Get("If-None-Match") == etag {
			w.Header().Set("Cache-Control", "max-age=300")
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "max-age=300")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}
