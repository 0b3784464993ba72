// Package testutil provides testing utilities for the Canvas client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock Canvas endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request seen by the mock server.
type RecordedRequest struct {
	Path   string
	Query  url.Values
	Header http.Header
	At     time.Time
}

// MockCanvas is a configurable mock Canvas server for testing.
//
// Responses are scripted per route. A route is either "path" or "path?rawquery";
// the exact path+query route wins over the bare path. Each route plays its
// responses in order and keeps repeating the last one.
type MockCanvas struct {
	server   *httptest.Server
	mu       sync.Mutex
	scripts  map[string][]MockResponse
	handlers map[string]http.HandlerFunc
	requests []RecordedRequest
}

// NewMockCanvas creates a new mock Canvas server.
func NewMockCanvas() *MockCanvas {
	mock := &MockCanvas{
		scripts:  make(map[string][]MockResponse),
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.serve))
	return mock
}

// URL returns the mock server URL.
func (m *MockCanvas) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCanvas) Close() {
	m.server.Close()
}

// SetHandler sets a custom handler for a route.
func (m *MockCanvas) SetHandler(route string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[route] = handler
}

// SetResponses scripts the responses for a route.
func (m *MockCanvas) SetResponses(route string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[route] = append([]MockResponse(nil), responses...)
}

// Requests returns a copy of all recorded requests.
func (m *MockCanvas) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// RequestCount returns the number of requests made to path (any query).
func (m *MockCanvas) RequestCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, r := range m.requests {
		if r.Path == path {
			count++
		}
	}
	return count
}

// TotalRequests returns the number of requests made to the server.
func (m *MockCanvas) TotalRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *MockCanvas) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		At:     time.Now(),
	})

	routes := []string{r.URL.Path}
	if r.URL.RawQuery != "" {
		routes = []string{r.URL.Path + "?" + r.URL.RawQuery, r.URL.Path}
	}

	var (
		handler http.HandlerFunc
		resp    *MockResponse
	)
	for _, route := range routes {
		if h, ok := m.handlers[route]; ok {
			handler = h
			break
		}
		if script := m.scripts[route]; len(script) > 0 {
			next := script[0]
			if len(script) > 1 {
				m.scripts[route] = script[1:]
			}
			resp = &next
			break
		}
	}
	m.mu.Unlock()

	switch {
	case handler != nil:
		handler(w, r)
	case resp != nil:
		writeResponse(w, *resp)
	default:
		writeResponse(w, NewNotFoundResponse())
	}
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}

	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		_, _ = w.Write([]byte(resp.Body))
	}
}

// NewJSONResponse creates a 200 OK response with the given JSON body.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"X-Rate-Limit-Remaining": "700.0",
		},
	}
}

// NewPageResponse creates a 200 OK page whose Link header points at next.
// An empty next produces a last page carrying only current/first links.
func NewPageResponse(body, current, next string) MockResponse {
	resp := NewJSONResponse(body)

	link := fmt.Sprintf(`<%s>; rel="current",<%s>; rel="first"`, current, current)
	if next != "" {
		link = fmt.Sprintf(`<%s>; rel="current",<%s>; rel="next",<%s>; rel="first"`, current, next, current)
	}
	resp.Headers["Link"] = link
	return resp
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
// An empty retryAfter omits the header.
func NewRateLimitResponse(retryAfter string) MockResponse {
	resp := MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       "403 Forbidden (Rate Limit Exceeded)",
		Headers: map[string]string{
			"Content-Type":           "text/plain",
			"X-Rate-Limit-Remaining": "0.0",
		},
	}
	if retryAfter != "" {
		resp.Headers["Retry-After"] = retryAfter
	}
	return resp
}

// NewServerErrorResponse creates a 5xx response with the given status.
func NewServerErrorResponse(status int) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       `{"errors":[{"message":"An error occurred."}]}`,
	}
}

// NewNotFoundResponse creates a Canvas-style 404 response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"errors":[{"message":"The specified resource does not exist."}]}`,
	}
}

// NewUnauthorizedResponse creates a Canvas-style 401 response.
func NewUnauthorizedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"errors":[{"message":"user authorization required"}],"status":"unauthorized"}`,
	}
}
