//go:build integration

package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/akashgurava/deckterra/internal/testutil"
	"github.com/akashgurava/deckterra/pkg/cache"
)

const pageBody = `{"hasNext":true,"decks":[{"uid":"a","exportUID":"CODE-A"}]}`

func newCachedClient(t *testing.T) (*Client, *cache.Manager) {
	t.Helper()
	manager := cache.NewManager(testutil.StartRedis(t))

	cfg := DefaultConfig("TestApp/1.0.0 (integration@test.com)")
	cfg.Cache = manager
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c, manager
}

func TestIntegration_FreshPageServedFromCache(t *testing.T) {
	c, manager := newCachedClient(t)

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Cache-Control", "max-age=300")
		w.Header().Set("ETag", `"page-0"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(pageBody))
	}))
	defer server.Close()

	ctx := context.Background()
	d := Get(server.URL+"/api/v2/decks/library", url.Values{"from": {"0"}, "count": {"1"}})

	for i := 1; i <= 3; i++ {
		body, err := c.Execute(ctx, d)
		if err != nil {
			t.Fatalf("Request %d failed: %v", i, err)
		}
		if string(body) != pageBody {
			t.Errorf("Request %d body = %s", i, body)
		}
	}

	if n := requests.Load(); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}

	u, _ := d.URL()
	entry, err := manager.Get(ctx, cache.KeyFromURL(u))
	if err != nil {
		t.Fatalf("Cache lookup failed: %v", err)
	}
	if entry.ETag != `"page-0"` || entry.IsExpired() {
		t.Errorf("cached entry = etag %q expired %v", entry.ETag, entry.IsExpired())
	}
}

func TestIntegration_StalePageRevalidated(t *testing.T) {
	c, _ := newCachedClient(t)

	var requests, conditional atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("ETag", `"page-0"`)
		if r.Header.Get("If-None-Match") == `"page-0"` {
			conditional.Add(1)
			w.Header().Set("Cache-Control", "max-age=300")
			w.WriteHeader(http.StatusNotModified)
			return
		}
		// Stale on arrival, kept only for revalidation
		w.Header().Set("Cache-Control", "max-age=0")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(pageBody))
	}))
	defer server.Close()

	ctx := context.Background()
	d := Get(server.URL+"/api/v2/decks/library", url.Values{"from": {"0"}})

	for i := 1; i <= 3; i++ {
		body, err := c.Execute(ctx, d)
		if err != nil {
			t.Fatalf("Request %d failed: %v", i, err)
		}
		if string(body) != pageBody {
			t.Errorf("Request %d body = %s", i, body)
		}
	}

	// 1: full fetch, 2: conditional 304, 3: fresh again after refresh
	if n := requests.Load(); n != 2 {
		t.Errorf("requests = %d, want 2", n)
	}
	if n := conditional.Load(); n != 1 {
		t.Errorf("conditional requests = %d, want 1", n)
	}
}

func TestIntegration_NoStoreAndErrorsNotCached(t *testing.T) {
	c, _ := newCachedClient(t)

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		if r.URL.Query().Get("from") == "1" && n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Cache-Control", "no-store, max-age=300")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(pageBody))
	}))
	defer server.Close()

	ctx := context.Background()
	noStore := Get(server.URL, url.Values{"from": {"0"}})
	for i := 0; i < 2; i++ {
		if _, err := c.Execute(ctx, noStore); err != nil {
			t.Fatalf("no-store request failed: %v", err)
		}
	}
	if n := requests.Load(); n != 2 {
		t.Errorf("no-store requests = %d, want 2", n)
	}

	failing := Get(server.URL, url.Values{"from": {"1"}})
	_, err := c.Execute(ctx, failing)
	var transportErr *TransportError
	if !errors.As(err, &transportErr) || transportErr.Class != ErrorClassServer {
		t.Fatalf("Execute() error = %v, want server error", err)
	}
}

func TestIntegration_RetrierWithCache(t *testing.T) {
	c, _ := newCachedClient(t)

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Cache-Control", "max-age=300")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"n":5}`))
	}))
	defer server.Close()

	r := NewRetrier(c, JSONDecoder[payload](), fastRetry(3))
	d := Get(server.URL, nil)

	for i := 0; i < 2; i++ {
		got, err := r.Do(context.Background(), 0, d)
		if err != nil || got.N != 5 {
			t.Fatalf("Do() = %+v, %v", got, err)
		}
	}
	// One failure, one success; the second Do is served from cache
	if n := requests.Load(); n != 2 {
		t.Errorf("requests = %d, want 2", n)
	}
}

func TestIntegration_UndecodablePageNotReplayed(t *testing.T) {
	c, _ := newCachedClient(t)

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "max-age=300")
		w.WriteHeader(http.StatusOK)
		if requests.Add(1) == 1 {
			w.Write([]byte(`{"n":`))
			return
		}
		w.Write([]byte(`{"n":9}`))
	}))
	defer server.Close()

	r := NewRetrier(c, JSONDecoder[payload](), fastRetry(3))
	got, err := r.Do(context.Background(), 0, Get(server.URL, nil))
	if err != nil || got.N != 9 {
		t.Fatalf("Do() = %+v, %v; want {9}, nil", got, err)
	}
	// The truncated body was dropped from cache, so the retry went to the server
	if n := requests.Load(); n != 2 {
		t.Errorf("requests = %d, want 2", n)
	}
}
