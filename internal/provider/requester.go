package provider

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMaxAttempts = 4
	defaultBackoffBase = time.Second
	defaultBackoffMax  = 30 * time.Second
	maxRetryAfter      = 2 * time.Minute
	errorBodyLimit     = 2 << 10
)

// Mode is the transport a request is currently routed through.
type Mode int

const (
	ModeDirect Mode = iota
	ModeProxyFallback
)

func (m Mode) String() string {
	if m == ModeProxyFallback {
		return "proxy"
	}
	return "direct"
}

type RequesterConfig struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// ProxyURL is a CORS proxy accepting raw?url=<target>. Empty disables the fallback.
	ProxyURL  string
	UserAgent string
	Header    http.Header
}

// Requester performs rate-limited GETs with retry, backoff and a one-time
// switch to a CORS proxy when the direct route looks blocked.
type Requester struct {
	client  *http.Client
	limiter *RateLimiter
	cfg     RequesterConfig

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(max time.Duration) time.Duration
	now    func() time.Time
}

func NewRequester(client *http.Client, limiter *RateLimiter, cfg RequesterConfig) *Requester {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = defaultBackoffMax
	}
	return &Requester{
		client:  client,
		limiter: limiter,
		cfg:     cfg,
		sleep:   sleepContext,
		jitter:  randomJitter,
		now:     time.Now,
	}
}

// requestState is the position of one call in the {Direct, ProxyFallback} x attempt grid.
type requestState struct {
	mode    Mode
	attempt int
}

// Get fetches target and returns the response body. It fails with the last
// error seen once attempts are exhausted; a run of 429s ends as *RateLimitError.
func (r *Requester) Get(ctx context.Context, target string) ([]byte, error) {
	state := requestState{mode: ModeDirect, attempt: 1}
	var lastErr error
	var lastRetryAfter time.Duration

	for state.attempt <= r.cfg.MaxAttempts {
		reqURL := target
		if state.mode == ModeProxyFallback {
			reqURL = r.proxied(target)
		}

		body, retryAfter, err := r.do(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		lastRetryAfter = retryAfter

		// Direct -> ProxyFallback happens once and does not use up an attempt.
		if state.mode == ModeDirect && r.cfg.ProxyURL != "" && corsClass(err) {
			log.Printf("request to %s blocked (%v), retrying through proxy", target, err)
			state.mode = ModeProxyFallback
			continue
		}
		if !retryable(err) {
			return nil, err
		}
		if state.attempt == r.cfg.MaxAttempts {
			break
		}

		delay := r.backoff(state.attempt, retryAfter)
		log.Printf("request to %s failed (attempt %d/%d, %s): %v, retrying in %v",
			target, state.attempt, r.cfg.MaxAttempts, state.mode, err, delay)
		if err := r.sleep(ctx, delay); err != nil {
			return nil, err
		}
		state.attempt++
	}

	if isRateLimited(lastErr) {
		return nil, &RateLimitError{Attempts: r.cfg.MaxAttempts, RetryAfter: lastRetryAfter, Err: lastErr}
	}
	return nil, lastErr
}

func (r *Requester) do(ctx context.Context, target string) ([]byte, time.Duration, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, 0, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if r.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", r.cfg.UserAgent)
	}
	for k, vals := range r.cfg.Header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, 0, &NetworkError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), r.now())
		return nil, retryAfter, &UpstreamError{URL: target, StatusCode: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &NetworkError{URL: target, Err: err}
	}
	return body, 0, nil
}

// proxied wraps target for the CORS proxy and adds a cache-busting parameter.
func (r *Requester) proxied(target string) string {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	busted := target + sep + "_cb=" + strconv.FormatInt(r.now().UnixNano(), 10)
	return strings.TrimRight(r.cfg.ProxyURL, "/") + "/raw?url=" + url.QueryEscape(busted)
}

// backoff returns the server-supplied Retry-After when present, otherwise
// base*2^(attempt-1) capped at BackoffMax plus up to one base of jitter.
func (r *Requester) backoff(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}
	d := r.cfg.BackoffBase << (attempt - 1)
	if d <= 0 || d > r.cfg.BackoffMax {
		d = r.cfg.BackoffMax
	}
	return d + r.jitter(r.cfg.BackoffBase)
}

func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(v); err == nil {
		d = t.Sub(now)
	}
	if d < 0 {
		return 0
	}
	if d > maxRetryAfter {
		return maxRetryAfter
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}
