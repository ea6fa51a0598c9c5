package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors returned by resolver implementations and the pipeline API.
// Checked with errors.Is / errors.As.
var (
	// ErrNotFound is returned when the resolver reports that a handle does
	// not exist. No permanent negative cache is kept for it: the remote
	// catalog can change, so the handle stays eligible for rediscovery.
	ErrNotFound = errors.New("repscrub: handle not found")

	// ErrEmptyHandle is returned when a raw handle canonicalizes to the
	// empty key.
	ErrEmptyHandle = errors.New("repscrub: empty handle")

	// ErrNotTrusted is returned by Untrust when the handle was never on
	// the trust list.
	ErrNotTrusted = errors.New("repscrub: handle not trusted")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("repscrub: invalid configuration")
)

// RateLimitError signals that the resolver refused the call because the
// caller is over its request budget. RetryAfter is the server-suggested
// pause, zero when the server supplied none.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("repscrub: rate limited, retry after %s", e.RetryAfter)
	}
	return "repscrub: rate limited"
}

// AsRateLimit unwraps err to a *RateLimitError if there is one in the chain.
func AsRateLimit(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}
