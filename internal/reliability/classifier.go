package reliability

import (
	"errors"
	"time"
)

// ErrRetryable marks a failure as transient. Wrap it into an error chain and
// IsRetryable reports true for the whole chain.
var ErrRetryable = errors.New("retryable upstream failure")

// IsRetryable reports whether an error chain is tagged as transient.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetryable)
}

// IsRetryableHTTPStatus classifies retryable HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// ExponentialBackoff computes a deterministic capped backoff duration.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}
