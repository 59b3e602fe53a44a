// Package testutil provides testing utilities for the deck library client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LibraryPath is the path the mock serves pages on.
const LibraryPath = "/api/v2/decks/library"

// MockResponse overrides what one page request returns.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// pageRule is a queued override for one page offset.
type pageRule struct {
	resp  MockResponse
	times int
}

// MockLibrary is a configurable mock of the paginated deck library.
// Pages are slices of a fixed catalogue selected by the from and count
// query parameters.
type MockLibrary struct {
	server *httptest.Server
	mu     sync.Mutex

	items  []json.RawMessage
	rules  map[uint32][]pageRule
	delays map[uint32]time.Duration

	cacheHeaders bool
	maxAge       time.Duration

	// Tracking
	requestCount     int
	conditionalCount int
	perOffset        map[uint32]int
	starts           []time.Time
	inFlight         int
	maxInFlight      int
	lastQuery        map[string]string
	lastHeader       http.Header
}

// NewMockLibrary serves items as the catalogue, in the given order.
func NewMockLibrary[T any](items []T) *MockLibrary {
	raw := make([]json.RawMessage, len(items))
	for i, item := range items {
		b, err := json.Marshal(item)
		if err != nil {
			panic(fmt.Sprintf("marshal mock item %d: %v", i, err))
		}
		raw[i] = b
	}

	mock := &MockLibrary{
		items:     raw,
		rules:     make(map[uint32][]pageRule),
		delays:    make(map[uint32]time.Duration),
		perOffset: make(map[uint32]int),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// BaseURL returns the API root to pass as the library base URL.
func (m *MockLibrary) BaseURL() string {
	return m.server.URL + "/api/v2/"
}

// Close shuts down the mock server.
func (m *MockLibrary) Close() {
	m.server.Close()
}

// FailPage makes the next n requests for the page at offset from return status.
func (m *MockLibrary) FailPage(from uint32, n int, status int) {
	m.SetPageResponse(from, n, MockResponse{
		StatusCode: status,
		Body:       `{"error":"injected failure"}`,
	})
}

// SetPageResponse makes the next n requests for the page at offset from
// return resp instead of catalogue data.
func (m *MockLibrary) SetPageResponse(from uint32, n int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[from] = append(m.rules[from], pageRule{resp: resp, times: n})
}

// DelayPage delays every response for the page at offset from.
func (m *MockLibrary) DelayPage(from uint32, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[from] = d
}

// SetCacheHeaders makes successful pages carry an ETag and max-age, and
// answer matching If-None-Match requests with 304. A zero maxAge makes
// every page stale on arrival.
func (m *MockLibrary) SetCacheHeaders(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHeaders = true
	m.maxAge = maxAge
}

// RequestCount returns the number of requests made to the server.
func (m *MockLibrary) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// ConditionalCount returns the number of conditional requests.
func (m *MockLibrary) ConditionalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conditionalCount
}

// RequestsFor returns how many requests asked for the page at offset from.
func (m *MockLibrary) RequestsFor(from uint32) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.perOffset[from]
}

// Starts returns the arrival time of every request, in arrival order.
func (m *MockLibrary) Starts() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.starts...)
}

// MaxInFlight returns the highest number of requests handled at once.
func (m *MockLibrary) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// LastQuery returns the query parameters of the most recent request.
func (m *MockLibrary) LastQuery() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.lastQuery))
	for k, v := range m.lastQuery {
		out[k] = v
	}
	return out
}

// LastHeader returns the headers of the most recent request.
func (m *MockLibrary) LastHeader() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHeader.Clone()
}

func (m *MockLibrary) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != LibraryPath {
		http.NotFound(w, r)
		return
	}

	from, count, err := pageBounds(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.requestCount++
	m.perOffset[from]++
	m.starts = append(m.starts, time.Now())
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.lastHeader = r.Header.Clone()
	m.lastQuery = make(map[string]string)
	for k := range r.URL.Query() {
		m.lastQuery[k] = r.URL.Query().Get(k)
	}
	conditional := r.Header.Get("If-None-Match")
	if conditional != "" {
		m.conditionalCount++
	}
	delay := m.delays[from]
	rule, hasRule := m.nextRule(from)
	cacheHeaders, maxAge := m.cacheHeaders, m.maxAge
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if hasRule && rule.Delay > delay {
		delay = rule.Delay
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if hasRule {
		for key, value := range rule.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(rule.StatusCode)
		if rule.Body != "" {
			w.Write([]byte(rule.Body))
		}
		return
	}

	etag := fmt.Sprintf(`"page-%d-%d"`, from, count)
	if cacheHeaders {
		w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", int(maxAge.Seconds())))
		w.Header().Set("ETag", etag)
		if conditional == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write(m.page(from, count))
}

// nextRule pops one use of the first queued override for from. Caller holds mu.
func (m *MockLibrary) nextRule(from uint32) (MockResponse, bool) {
	queue := m.rules[from]
	if len(queue) == 0 {
		return MockResponse{}, false
	}
	rule := queue[0]
	queue[0].times--
	if queue[0].times <= 0 {
		queue = queue[1:]
	}
	m.rules[from] = queue
	return rule.resp, true
}

func (m *MockLibrary) page(from, count uint32) []byte {
	start := min(int(from), len(m.items))
	end := min(start+int(count), len(m.items))

	var b strings.Builder
	b.WriteString(`{"hasNext":`)
	b.WriteString(strconv.FormatBool(end < len(m.items)))
	b.WriteString(`,"decks":[`)
	for i, item := range m.items[start:end] {
		if i > 0 {
			b.WriteByte(',')
		}
		b.Write(item)
	}
	b.WriteString(`]}`)
	return []byte(b.String())
}

func pageBounds(r *http.Request) (uint32, uint32, error) {
	q := r.URL.Query()
	from, err := strconv.ParseUint(q.Get("from"), 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid from: %w", err)
	}
	count, err := strconv.ParseUint(q.Get("count"), 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid count: %w", err)
	}
	return uint32(from), uint32(count), nil
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter time.Duration) MockResponse {
	resp := MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
	}
	if retryAfter > 0 {
		resp.Headers = map[string]string{
			"Retry-After": strconv.Itoa(int(retryAfter.Seconds())),
		}
	}
	return resp
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}

// NewMalformedResponse creates a 200 response whose body is not a page.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"hasNext": true, "decks": [`,
	}
}
