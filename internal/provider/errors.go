package provider

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// NetworkError is a transport-level failure: refused connection, DNS, TLS,
// or a blocked cross-origin request.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error for %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamError is a non-2xx HTTP response.
type UpstreamError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error %d: %s", e.StatusCode, e.Body)
}

// RateLimitError is returned when the upstream kept answering 429 until attempts ran out.
type RateLimitError struct {
	Attempts   int
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// ParseError is a response body that is not the expected JSON envelope.
type ParseError struct {
	What string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return "parse " + e.What
	}
	return fmt.Sprintf("parse %s: %v", e.What, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// CoinError tags a per-coin failure with the coin identifier.
type CoinError struct {
	CoinID string
	Err    error
}

func (e *CoinError) Error() string {
	return fmt.Sprintf("%s: %v", e.CoinID, e.Err)
}

func (e *CoinError) Unwrap() error { return e.Err }

// corsClass reports failures a browser would show for a blocked cross-origin
// call: no response at all, status 0, or 403.
func corsClass(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.StatusCode == 0 || upErr.StatusCode == http.StatusForbidden
	}
	return false
}

func retryable(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.StatusCode == 0 ||
			upErr.StatusCode == http.StatusTooManyRequests ||
			upErr.StatusCode >= 500
	}
	return false
}

func isRateLimited(err error) bool {
	var upErr *UpstreamError
	return errors.As(err, &upErr) && upErr.StatusCode == http.StatusTooManyRequests
}
