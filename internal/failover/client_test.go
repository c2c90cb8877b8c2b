package failover

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spofree/spofree/internal/provider"
)

func statusServer(t *testing.T, status int, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"path":"` + r.URL.Path + `"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRequestRotatesPastServerErrors(t *testing.T) {
	a := statusServer(t, http.StatusInternalServerError, nil)
	b := statusServer(t, http.StatusBadGateway, nil)
	c := statusServer(t, http.StatusOK, nil)

	client, err := New(Options{Instances: []string{a.URL, b.URL, c.URL}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := client.Request(context.Background(), "/search/", time.Second)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
	if resp.Instance != c.URL {
		t.Errorf("expected response from third instance, got %s", resp.Instance)
	}
	if client.Index() != 2 {
		t.Errorf("expected pointer on instance 3, got index %d", client.Index())
	}
}

func TestRequestPointerPersistsAcrossCalls(t *testing.T) {
	var hitsA, hitsB int32
	a := statusServer(t, http.StatusTooManyRequests, &hitsA)
	b := statusServer(t, http.StatusOK, &hitsB)

	client, _ := New(Options{Instances: []string{a.URL, b.URL}})
	for i := 0; i < 3; i++ {
		if _, err := client.Request(context.Background(), "track/", time.Second); err != nil {
			t.Fatalf("Request %d: %v", i, err)
		}
	}
	if hitsA != 1 {
		t.Errorf("expected the rate limited instance to be tried once, got %d", hitsA)
	}
	if hitsB != 3 {
		t.Errorf("expected 3 hits on the healthy instance, got %d", hitsB)
	}
}

func TestRequestClientErrorNotRotated(t *testing.T) {
	var hitsB int32
	a := statusServer(t, http.StatusNotFound, nil)
	b := statusServer(t, http.StatusOK, &hitsB)

	client, _ := New(Options{Instances: []string{a.URL, b.URL}})
	resp, err := client.Request(context.Background(), "/album/?id=1", time.Second)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound || resp.OK() {
		t.Fatalf("expected 404 passthrough, got %d", resp.StatusCode)
	}
	if client.Index() != 0 || hitsB != 0 {
		t.Errorf("4xx must not rotate: index=%d hitsB=%d", client.Index(), hitsB)
	}
}

func TestRequestAllInstancesExhausted(t *testing.T) {
	var hits int32
	a := statusServer(t, http.StatusServiceUnavailable, &hits)
	b := statusServer(t, http.StatusInternalServerError, &hits)

	client, _ := New(Options{Instances: []string{a.URL, b.URL}})
	_, err := client.Request(context.Background(), "/", time.Second)
	if !provider.IsExhausted(err) {
		t.Fatalf("expected exhausted error, got %v", err)
	}
	if hits != 2 {
		t.Errorf("expected one attempt per instance, got %d", hits)
	}
	if client.Index() != 0 {
		t.Errorf("expected pointer to wrap back to 0, got %d", client.Index())
	}
}

func TestRequestTimeoutRotates(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()
	fast := statusServer(t, http.StatusOK, nil)

	client, _ := New(Options{Instances: []string{slow.URL, fast.URL}})
	resp, err := client.Request(context.Background(), "/", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if resp.Instance != fast.URL {
		t.Errorf("expected fallback to fast instance, got %s", resp.Instance)
	}
}

func TestRequestUnreachableInstance(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()
	ok := statusServer(t, http.StatusOK, nil)

	client, _ := New(Options{Instances: []string{deadURL, ok.URL}})
	resp, err := client.Request(context.Background(), "/", time.Second)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if resp.Instance != ok.URL {
		t.Errorf("expected second instance, got %s", resp.Instance)
	}
}

func TestRequestCancelledContext(t *testing.T) {
	ok := statusServer(t, http.StatusOK, nil)
	client, _ := New(Options{Instances: []string{ok.URL}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Request(ctx, "/", time.Second); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestNewRequiresInstances(t *testing.T) {
	if _, err := New(Options{}); !provider.IsInvalidConfig(err) {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}

func TestJoinURL(t *testing.T) {
	tests := []struct {
		base, endpoint, want string
	}{
		{"https://a.example/", "/search/?s=x", "https://a.example/search/?s=x"},
		{"https://a.example", "track/?id=1", "https://a.example/track/?id=1"},
		{"https://a.example/api/", "album/", "https://a.example/api/album/"},
	}
	for _, tt := range tests {
		if got := joinURL(tt.base, tt.endpoint); got != tt.want {
			t.Errorf("joinURL(%q, %q) = %q, want %q", tt.base, tt.endpoint, got, tt.want)
		}
	}
}

func TestProbeChecksEveryInstance(t *testing.T) {
	var hitsA, hitsB int32
	a := statusServer(t, http.StatusServiceUnavailable, &hitsA)
	b := statusServer(t, http.StatusOK, &hitsB)

	client, _ := New(Options{Instances: []string{a.URL, b.URL, "http://127.0.0.1:1"}})
	results := client.Probe(context.Background(), "/", time.Second)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Instance != a.URL || !provider.IsTemporary(results[0].Err) || results[0].Status != http.StatusServiceUnavailable {
		t.Errorf("unexpected first result %+v", results[0])
	}
	if results[1].Err != nil || results[1].Status != http.StatusOK {
		t.Errorf("unexpected second result %+v", results[1])
	}
	if results[2].Err == nil {
		t.Error("expected unreachable instance to fail")
	}
	if client.Index() != 0 {
		t.Errorf("probe must not move the pointer, index %d", client.Index())
	}
	if atomic.LoadInt32(&hitsA) != 1 || atomic.LoadInt32(&hitsB) != 1 {
		t.Errorf("expected one hit each, got %d and %d", hitsA, hitsB)
	}
}
