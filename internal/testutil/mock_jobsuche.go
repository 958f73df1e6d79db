// Package testutil provides testing utilities for the Jobsuche client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// Paths served by the Jobsuche service.
const (
	PathJobs       = "/pc/v4/jobs"
	PathJobDetails = "/pc/v4/jobdetails/"
	PathLogo       = "/ed/v1/arbeitgeberlogo/"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is what the mock saw for one request.
type RecordedRequest struct {
	// Path is the escaped request path.
	Path   string
	Query  url.Values
	Header http.Header
}

// MockJobsuche is a configurable mock Jobsuche server for testing.
// Handlers are keyed by escaped path.
type MockJobsuche struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	requests []RecordedRequest
}

// NewMockJobsuche creates a new mock server.
func NewMockJobsuche() *MockJobsuche {
	mock := &MockJobsuche{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.EscapedPath()

		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Path:   path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
		})
		handler, exists := mock.handlers[path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		writeResponse(w, NewNotFoundResponse())
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockJobsuche) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockJobsuche) Close() {
	m.server.Close()
}

// Reset clears recorded requests.
func (m *MockJobsuche) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// SetHandler sets a custom handler for an escaped path.
func (m *MockJobsuche) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockJobsuche) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// SetSequence answers successive requests to path with responses in order.
// The last response repeats once the sequence is used up.
func (m *MockJobsuche) SetSequence(path string, responses ...MockResponse) {
	var mu sync.Mutex
	next := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[min(next, len(responses)-1)]
		next++
		mu.Unlock()
		writeResponse(w, resp)
	})
}

// SetListingPages serves the jobs endpoint from pageSizes: page N (from 1)
// holds pageSizes[N-1] listings with refnr "REF-<N>-<i>". Pages beyond the
// slice are empty. total, when >= 0, is reported as maxErgebnisse.
func (m *MockJobsuche) SetListingPages(total int64, pageSizes ...int) {
	m.SetHandler(PathJobs, func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			page = 1
		}

		count := 0
		if page <= len(pageSizes) {
			count = pageSizes[page-1]
		}

		listings := make([]map[string]any, 0, count)
		for i := range count {
			listings = append(listings, Listing(fmt.Sprintf("REF-%d-%d", page, i)))
		}

		envelope := map[string]any{
			"stellenangebote": listings,
			"page":            page,
		}
		if size, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil {
			envelope["size"] = size
		}
		if total >= 0 {
			envelope["maxErgebnisse"] = total
		}

		writeResponse(w, NewJSONResponse(envelope))
	})
}

// Requests returns a copy of every request seen so far.
func (m *MockJobsuche) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockJobsuche) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or false if none was made.
func (m *MockJobsuche) LastRequest() (RecordedRequest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.requests) == 0 {
		return RecordedRequest{}, false
	}
	return m.requests[len(m.requests)-1], true
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// Listing returns a minimal search result record.
func Listing(refnr string) map[string]any {
	return map[string]any{
		"refnr":       refnr,
		"beruf":       "Softwareentwickler/in",
		"titel":       "Go Developer " + refnr,
		"arbeitgeber": "Example GmbH",
		"arbeitsort": map[string]any{
			"ort": "Berlin",
			"plz": "10115",
			"koordinaten": map[string]float64{
				"lat": 52.53,
				"lon": 13.38,
			},
		},
	}
}

// NewJSONResponse creates a 200 OK response with v encoded as the body.
func NewJSONResponse(v any) MockResponse {
	body, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal response: %v", err))
	}
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"errors": ["not found"]}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response. An empty
// retryAfter omits the header.
func NewRateLimitResponse(retryAfter string) MockResponse {
	resp := MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"errors": ["rate limit exceeded"]}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
	if retryAfter != "" {
		resp.Headers["Retry-After"] = retryAfter
	}
	return resp
}

// NewServerErrorResponse creates a 5xx response with the service's fault body.
func NewServerErrorResponse(status int) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       `{"errors": ["backend unavailable"], "error_messages": ["Bitte versuchen Sie es später erneut"]}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewPNGResponse creates a 200 OK image response.
func NewPNGResponse(data []byte) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(data),
		Headers: map[string]string{
			"Content-Type": "image/png",
		},
	}
}
