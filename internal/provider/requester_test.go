package provider

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

// newTestRequester builds a requester with no spacing and recorded sleeps.
func newTestRequester(rt roundTripFunc, cfg RequesterConfig) (*Requester, *[]time.Duration) {
	r := NewRequester(&http.Client{Transport: rt}, NewRateLimiter(0), cfg)
	var sleeps []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	r.jitter = func(time.Duration) time.Duration { return 0 }
	return r, &sleeps
}

func TestRequesterSuccess(t *testing.T) {
	r, sleeps := newTestRequester(func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("Accept") != "application/json" {
			t.Fatalf("expected json accept header")
		}
		if req.Header.Get("x-cg-demo-api-key") != "k" {
			t.Fatalf("expected configured header to be sent")
		}
		return jsonResponse(http.StatusOK, `{"ok":true}`), nil
	}, RequesterConfig{Header: http.Header{"x-cg-demo-api-key": []string{"k"}}})

	body, err := r.Get(context.Background(), "http://example/x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("unexpected body: %s", body)
	}
	if len(*sleeps) != 0 {
		t.Fatalf("expected no backoff, got %v", *sleeps)
	}
}

func TestRequesterHonorsRetryAfter(t *testing.T) {
	calls := 0
	r, sleeps := newTestRequester(func(req *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			resp := jsonResponse(http.StatusTooManyRequests, "slow down")
			resp.Header.Set("Retry-After", "7")
			return resp, nil
		}
		return jsonResponse(http.StatusOK, `[]`), nil
	}, RequesterConfig{MaxAttempts: 3, BackoffBase: time.Second})

	if _, err := r.Get(context.Background(), "http://example/x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != 7*time.Second {
		t.Fatalf("expected a single 7s delay from Retry-After, got %v", *sleeps)
	}
}

func TestRequesterExponentialBackoffWithoutRetryAfter(t *testing.T) {
	r, sleeps := newTestRequester(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusTooManyRequests, ""), nil
	}, RequesterConfig{MaxAttempts: 4, BackoffBase: 100 * time.Millisecond, BackoffMax: 250 * time.Millisecond})

	_, err := r.Get(context.Background(), "http://example/x")
	var rlErr *RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rlErr.Attempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", rlErr.Attempts)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 250 * time.Millisecond}
	if len(*sleeps) != len(want) {
		t.Fatalf("expected %d sleeps, got %v", len(want), *sleeps)
	}
	for i, d := range want {
		if (*sleeps)[i] != d {
			t.Fatalf("sleep %d: expected %v, got %v", i, d, (*sleeps)[i])
		}
	}
}

func TestRequesterNonRetryableStatus(t *testing.T) {
	calls := 0
	r, _ := newTestRequester(func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusNotFound, "missing"), nil
	}, RequesterConfig{MaxAttempts: 3})

	_, err := r.Get(context.Background(), "http://example/x")
	var upErr *UpstreamError
	if !errors.As(err, &upErr) || upErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 UpstreamError, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestRequesterNetworkErrorExhaustsAttempts(t *testing.T) {
	calls := 0
	r, _ := newTestRequester(func(req *http.Request) (*http.Response, error) {
		calls++
		return nil, errors.New("connection refused")
	}, RequesterConfig{MaxAttempts: 3})

	_, err := r.Get(context.Background(), "http://example/x")
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRequesterProxyFallbackIsFree(t *testing.T) {
	var hosts []string
	r, sleeps := newTestRequester(func(req *http.Request) (*http.Response, error) {
		hosts = append(hosts, req.URL.Host)
		if req.URL.Host == "api.example" {
			return nil, errors.New("blocked by CORS policy")
		}
		if req.URL.Path != "/raw" {
			t.Fatalf("unexpected proxy path: %s", req.URL.Path)
		}
		target, err := url.Parse(req.URL.Query().Get("url"))
		if err != nil {
			t.Fatalf("bad proxied url: %v", err)
		}
		if target.Host != "api.example" || target.Query().Get("limit") != "5" {
			t.Fatalf("unexpected wrapped target: %s", target)
		}
		if target.Query().Get("_cb") == "" {
			t.Fatalf("expected cache-busting parameter")
		}
		if len(hosts) == 2 {
			return jsonResponse(http.StatusServiceUnavailable, "busy"), nil
		}
		return jsonResponse(http.StatusOK, `{"data":[]}`), nil
	}, RequesterConfig{MaxAttempts: 2, ProxyURL: "https://proxy.example/"})

	body, err := r.Get(context.Background(), "https://api.example/assets?limit=5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"data":[]}` {
		t.Fatalf("unexpected body: %s", body)
	}
	// direct (blocked) + proxy attempt 1 (503) + proxy attempt 2 (ok): the switch did not count.
	if len(hosts) != 3 || hosts[0] != "api.example" || hosts[1] != "proxy.example" || hosts[2] != "proxy.example" {
		t.Fatalf("unexpected call sequence: %v", hosts)
	}
	if len(*sleeps) != 1 {
		t.Fatalf("expected one backoff sleep, got %v", *sleeps)
	}
}

func TestRequesterProxyFallbackOnForbiddenOnlyOnce(t *testing.T) {
	calls := 0
	r, _ := newTestRequester(func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusForbidden, "nope"), nil
	}, RequesterConfig{MaxAttempts: 3, ProxyURL: "https://proxy.example"})

	_, err := r.Get(context.Background(), "https://api.example/assets")
	var upErr *UpstreamError
	if !errors.As(err, &upErr) || upErr.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 UpstreamError, got %v", err)
	}
	if !strings.Contains(upErr.URL, "proxy.example") {
		t.Fatalf("expected last error to come from the proxy route, got %s", upErr.URL)
	}
	if calls != 2 {
		t.Fatalf("expected direct + one proxy call, got %d", calls)
	}
}

func TestRequesterNoFallbackWithoutProxy(t *testing.T) {
	calls := 0
	r, _ := newTestRequester(func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusForbidden, "nope"), nil
	}, RequesterConfig{MaxAttempts: 3})

	if _, err := r.Get(context.Background(), "https://api.example/assets"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
}

func TestRequesterStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r, _ := newTestRequester(func(req *http.Request) (*http.Response, error) {
		cancel()
		return nil, req.Context().Err()
	}, RequesterConfig{MaxAttempts: 5})

	_, err := r.Get(ctx, "http://example/x")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := map[string]time.Duration{
		"":                              0,
		"3":                             3 * time.Second,
		"-4":                            0,
		"garbage":                       0,
		"100000":                        maxRetryAfter,
		"Wed, 01 Jan 2025 00:00:05 GMT": 5 * time.Second,
	}
	for in, want := range tests {
		if got := parseRetryAfter(in, now); got != want {
			t.Fatalf("%q: expected %v, got %v", in, want, got)
		}
	}
}
