package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"climate-platform/internal/models"
)

func testSource(url string) models.SourceFile {
	return models.SourceFile{
		StationID: "00691",
		Category:  models.CategoryAirTemperature,
		URL:       url,
	}
}

func TestFetch(t *testing.T) {
	payload := []byte("zip bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	f := New(server.Client(), 2)
	got, err := f.Fetch(context.Background(), testSource(server.URL))
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("Fetch() = %q, want %q", got, payload)
	}
}

func TestFetch_RemoteFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusInternalServerError)
	}))
	defer server.Close()

	f := New(server.Client(), 1)
	_, err := f.Fetch(context.Background(), testSource(server.URL))
	if err == nil {
		t.Fatal("Fetch() should fail on a 500 response")
	}

	var downloadErr *DownloadError
	if !errors.As(err, &downloadErr) {
		t.Fatalf("error type = %T, want *DownloadError", err)
	}
	if !downloadErr.IsTransient() {
		t.Error("DownloadError should be transient")
	}
}

func TestFetch_BoundsConcurrency(t *testing.T) {
	const limit = 3

	var inFlight, peak int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := New(server.Client(), limit)

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.Fetch(context.Background(), testSource(server.URL)); err != nil {
				t.Errorf("Fetch() error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(&peak); got > limit {
		t.Errorf("peak in-flight downloads = %d, want <= %d", got, limit)
	}
}

func TestFetch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New(nil, 1)
	// Occupy the only slot so the fetch has to wait on the context.
	f.slots <- struct{}{}

	_, err := f.Fetch(ctx, testSource("http://127.0.0.1:0/unreachable"))
	if err == nil {
		t.Fatal("Fetch() should fail when the context is cancelled")
	}
	var downloadErr *DownloadError
	if !errors.As(err, &downloadErr) {
		t.Fatalf("error type = %T, want *DownloadError", err)
	}
}

func TestFetch_CircuitOpensAfterSustainedFailures(t *testing.T) {
	var requests int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	f := New(server.Client(), 1)
	for i := 0; i < 12; i++ {
		if _, err := f.Fetch(context.Background(), testSource(server.URL)); err == nil {
			t.Fatal("Fetch() should keep failing against a failing host")
		}
	}

	// After the breaker trips the remaining calls fail fast without
	// reaching the server.
	if got := atomic.LoadInt64(&requests); got >= 12 {
		t.Errorf("server saw %d requests, breaker should have stopped some of the 12", got)
	}
}
