package request

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tourflow/pkg/tracker"
)

// memCache is an in-memory Cacher for tests.
type memCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{m: make(map[string][]byte)}
}

func (c *memCache) GetCache(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *memCache) SetCache(_ context.Context, key string, val []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = val
	return nil
}

func newTestClient() (*Client, *memCache, *tracker.Tracker) {
	c := newMemCache()
	tr := tracker.New()
	client := New(c, tr, ClientConfig{Retries: 3, Timeout: 5 * time.Second, BaseDelay: 5 * time.Millisecond})
	return client, c, tr
}

func TestGet_Sequential(t *testing.T) {
	// Handler sleeps to prove requests for the same provider run one at a time.
	var conc int32
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := atomic.AddInt32(&conc, 1)
		defer atomic.AddInt32(&conc, -1)

		if current > 1 {
			t.Errorf("Concurrency detected! Expected sequential.")
		}
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(200)
		if _, err := w.Write([]byte("ok")); err != nil {
			t.Logf("Write failed: %v", err)
		}
	}))
	defer svr.Close()

	client, _, _ := newTestClient()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Get(context.Background(), svr.URL, ""); err != nil {
				t.Errorf("Get failed: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestGet_Retry(t *testing.T) {
	var attempts int32
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(200)
		_, _ = w.Write([]byte("recovered"))
	}))
	defer svr.Close()

	client, _, _ := newTestClient()

	body, err := client.Get(context.Background(), svr.URL, "")
	if err != nil {
		t.Fatalf("Get failed after retries: %v", err)
	}
	if string(body) != "recovered" {
		t.Errorf("expected 'recovered', got %q", body)
	}
	if n := atomic.LoadInt32(&attempts); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestGet_MaxRetriesExceeded(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer svr.Close()

	client, _, _ := newTestClient()

	if _, err := client.Get(context.Background(), svr.URL, ""); err == nil {
		t.Error("expected error after exhausting retries")
	}
}

func TestGet_ClientErrorNotRetried(t *testing.T) {
	var attempts int32
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	}))
	defer svr.Close()

	client, _, _ := newTestClient()

	_, err := client.Get(context.Background(), svr.URL, "")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusNotFound {
		t.Errorf("expected code 404, got %d", statusErr.Code)
	}
	if n := atomic.LoadInt32(&attempts); n != 1 {
		t.Errorf("4xx should not be retried, got %d attempts", n)
	}
}

func TestGet_CacheHit(t *testing.T) {
	var hits int32
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(200)
		_, _ = w.Write([]byte("fresh"))
	}))
	defer svr.Close()

	client, _, tr := newTestClient()

	for i := 0; i < 3; i++ {
		body, err := client.Get(context.Background(), svr.URL, "key1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(body) != "fresh" {
			t.Errorf("expected 'fresh', got %q", body)
		}
	}

	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("expected a single network request, got %d", n)
	}

	stats := tr.Snapshot()
	host := svr.URL[len("http://"):]
	if stats[host].CacheHits != 2 {
		t.Errorf("expected 2 cache hits, got %d", stats[host].CacheHits)
	}
}

func TestPost_SendsJSONContentType(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}
		if ua := r.Header.Get("User-Agent"); ua == "" {
			t.Error("expected default User-Agent header")
		}
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer svr.Close()

	client, _, _ := newTestClient()

	if _, err := client.Post(context.Background(), svr.URL, []byte(`{"a":1}`), ""); err != nil {
		t.Fatalf("Post failed: %v", err)
	}
}

func TestGet_ContextCancelled(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer svr.Close()

	client, _, _ := newTestClient()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Get(ctx, svr.URL, "")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
