package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   attempts,
		BaseDelay:     time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestProbe_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewProber(WithRetryPolicy(fastRetry(2)))
	result := p.Probe(context.Background(), server.URL+"/page")

	if result.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", result.StatusCode)
	}
	if !result.IsSuccess() || result.IsNetworkError() {
		t.Error("Expected success classification")
	}
	if result.Attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", result.Attempts)
	}
	if result.RedirectTarget != "" {
		t.Errorf("Non-3xx result must not carry a redirect target, got %q", result.RedirectTarget)
	}
}

func TestProbe_RedirectNotFollowed(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Location", "https://example.com/new-home")
		w.WriteHeader(http.StatusMovedPermanently)
	}))
	defer server.Close()

	p := NewProber(WithRetryPolicy(fastRetry(2)))
	result := p.Probe(context.Background(), server.URL+"/old")

	if result.StatusCode != 301 {
		t.Fatalf("Expected status 301, got %d", result.StatusCode)
	}
	if result.RedirectTarget != "https://example.com/new-home" {
		t.Errorf("Location not captured: %q", result.RedirectTarget)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("Redirect must not be followed, server saw %d requests", hits)
	}
}

func TestProbe_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	p := NewProber(WithRetryPolicy(fastRetry(2)))
	result := p.Probe(context.Background(), server.URL+"/missing")

	if result.StatusCode != 404 {
		t.Errorf("Expected status 404, got %d", result.StatusCode)
	}
	if result.Attempts != 1 {
		t.Errorf("4xx must not be retried, got %d attempts", result.Attempts)
	}
}

func TestProbe_RateLimitedRetriesThenSucceeds(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewProber(WithRetryPolicy(fastRetry(4)))
	result := p.Probe(context.Background(), server.URL+"/limited")

	if result.StatusCode != 200 {
		t.Fatalf("Expected eventual 200, got %d", result.StatusCode)
	}
	if result.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", result.Attempts)
	}
}

func TestProbe_RateLimitExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewProber(WithRetryPolicy(fastRetry(3)))
	result := p.Probe(context.Background(), server.URL+"/limited")

	if result.StatusCode != 429 {
		t.Errorf("Exhausted retries must surface the 429, got %d", result.StatusCode)
	}
	if result.Attempts != 3 {
		t.Errorf("Expected full attempt budget, got %d", result.Attempts)
	}
}

func TestProbe_HeadFallsBackToGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewProber(WithRetryPolicy(fastRetry(2)))
	result := p.Probe(context.Background(), server.URL+"/no-head")

	if result.StatusCode != 200 {
		t.Errorf("Expected GET fallback to yield 200, got %d", result.StatusCode)
	}
}

func TestProbe_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL + "/gone"
	server.Close()

	p := NewProber(WithRetryPolicy(fastRetry(2)), WithTimeout(2*time.Second))
	result := p.Probe(context.Background(), url)

	if !result.IsNetworkError() {
		t.Fatalf("Expected network error, got status %d", result.StatusCode)
	}
	if result.NetworkErr == "" {
		t.Error("Expected network error reason")
	}
	if result.Attempts != 1 {
		t.Errorf("Network errors must not be retried, got %d attempts", result.Attempts)
	}
}

func TestProbe_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProber(WithRetryPolicy(fastRetry(2)))
	result := p.Probe(ctx, server.URL+"/page")

	if !result.IsNetworkError() {
		t.Errorf("Cancelled probe must report a network error, got status %d", result.StatusCode)
	}
}

func TestProbe_HostPolicyHeaders(t *testing.T) {
	var apiKey atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey.Store(r.Header.Get("X-Api-Key"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewProber(
		WithRetryPolicy(fastRetry(2)),
		WithHostPolicies([]HostPolicy{
			{Suffix: "127.0.0.1", Headers: map[string]string{"X-Api-Key": "secret"}},
			{Suffix: "example.com", Headers: map[string]string{"X-Api-Key": "wrong"}},
		}),
	)
	result := p.Probe(context.Background(), server.URL+"/page")

	if result.StatusCode != 200 {
		t.Fatalf("Expected status 200, got %d", result.StatusCode)
	}
	if got, _ := apiKey.Load().(string); got != "secret" {
		t.Errorf("Expected policy header for matching suffix, got %q", got)
	}
}

func TestFetchPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer server.Close()

	p := NewProber()
	body, status, err := p.FetchPage(context.Background(), server.URL+"/page")
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}
	if status != 200 {
		t.Errorf("Expected status 200, got %d", status)
	}
	if body != "<html><body>hello</body></html>" {
		t.Errorf("Unexpected body: %q", body)
	}
}

func TestBackoffDelayGrowsAndCaps(t *testing.T) {
	p := NewProber(WithRetryPolicy(RetryPolicy{
		MaxAttempts:   5,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      300 * time.Millisecond,
		BackoffFactor: 2.0,
	}))

	if d := p.backoffDelay(1); d != 100*time.Millisecond {
		t.Errorf("First delay = %v, want 100ms", d)
	}
	if d := p.backoffDelay(2); d != 200*time.Millisecond {
		t.Errorf("Second delay = %v, want 200ms", d)
	}
	if d := p.backoffDelay(4); d != 300*time.Millisecond {
		t.Errorf("Capped delay = %v, want 300ms", d)
	}
}
