// Package fetch downloads source archives under a bounded concurrency
// limit. The remote host is shared infrastructure, so exceeding the
// limit blocks the caller instead of queueing unboundedly.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"climate-platform/internal/models"
)

// DownloadError represents a network or remote failure for one
// archive. The fetcher performs exactly one attempt per call; retry
// policy, if any, belongs to the caller.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download of %s failed: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// IsTransient returns true; the same URL may succeed on a later run.
func (e *DownloadError) IsTransient() bool {
	return true
}

// Fetcher downloads archive bytes with a fixed number of in-flight
// slots. A circuit breaker trips after sustained remote failures so a
// struggling server is not hammered by the remaining queue; it never
// retries on its own.
type Fetcher struct {
	client  *http.Client
	slots   chan struct{}
	circuit *gobreaker.CircuitBreaker
}

// New creates a fetcher with the given concurrency limit.
func New(client *http.Client, maxConcurrent int) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "archive-download",
		MaxRequests: 3,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 8
		},
	})

	return &Fetcher{
		client:  client,
		slots:   make(chan struct{}, maxConcurrent),
		circuit: cb,
	}
}

// Fetch blocks until a download slot is free, performs one GET for the
// source file and returns the raw archive bytes.
func (f *Fetcher) Fetch(ctx context.Context, src models.SourceFile) ([]byte, error) {
	select {
	case f.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, &DownloadError{URL: src.URL, Err: ctx.Err()}
	}
	defer func() { <-f.slots }()

	result, err := f.circuit.Execute(func() (interface{}, error) {
		return f.download(ctx, src.URL)
	})
	if err != nil {
		return nil, &DownloadError{URL: src.URL, Err: err}
	}
	return result.([]byte), nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
