package integration

import (
	"errors"
	"fmt"
	"time"
)

// Supplier API failure taxonomy. Adapters translate every vendor quirk into
// one of these before an error crosses the adapter boundary; dispatcher and
// reconciler never see raw vendor payloads.
var (
	// ErrRateLimited marks both the local 5-minute auth gate and the
	// vendor's own "too many requests" responses. Match with errors.Is;
	// the concrete value is always a *RateLimitError carrying the wait.
	ErrRateLimited = errors.New("integration: supplier rate limited")

	ErrAuthenticationFailed = errors.New("integration: supplier authentication failed")
	ErrNoValidToken         = errors.New("integration: no valid supplier token")
	ErrTimeout              = errors.New("integration: supplier request timed out")
	ErrTransport            = errors.New("integration: supplier transport failure")
	ErrMalformedResponse    = errors.New("integration: malformed supplier response")
	ErrConfiguration        = errors.New("integration: supplier not configured for API calls")
	ErrProductNotFound      = errors.New("integration: supplier product not found")
	ErrOrderNotFound        = errors.New("integration: supplier order not found")
)

// RateLimitError is returned when a call must not be made yet. RetryAfter is
// the minimum wait before the next attempt; schedulers surface it instead of
// silently retrying.
type RateLimitError struct {
	RetryAfter time.Duration
}

// NewRateLimitError creates a RateLimitError with the given wait time
func NewRateLimitError(retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{RetryAfter: retryAfter}
}

// Error implements the error interface
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("integration: supplier rate limited, retry after %s", e.RetryAfter)
}

// Is lets errors.Is(err, ErrRateLimited) match
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// WaitSeconds returns the wait time in whole seconds, rounded up
func (e *RateLimitError) WaitSeconds() int {
	secs := int(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}

// maxBodyExcerpt bounds how much of a remote error body is retained
const maxBodyExcerpt = 512

// RemoteError is a non-2xx HTTP response from the supplier
type RemoteError struct {
	StatusCode  int
	BodyExcerpt string
}

// NewRemoteError creates a RemoteError, truncating the body excerpt
func NewRemoteError(statusCode int, body []byte) *RemoteError {
	excerpt := string(body)
	if len(excerpt) > maxBodyExcerpt {
		excerpt = excerpt[:maxBodyExcerpt]
	}
	return &RemoteError{StatusCode: statusCode, BodyExcerpt: excerpt}
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	return fmt.Sprintf("integration: supplier returned HTTP %d: %s", e.StatusCode, e.BodyExcerpt)
}

// RetryAfterSeconds extracts the advertised wait from a rate-limit error.
// Returns (0, false) for any other error.
func RetryAfterSeconds(err error) (int, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.WaitSeconds(), true
	}
	return 0, false
}
