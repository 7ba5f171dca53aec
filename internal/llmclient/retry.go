// internal/llmclient/retry.go
package llmclient

import (
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// defaultMaxRetryElapsed applies when the configuration leaves it unset.
const defaultMaxRetryElapsed = 2 * time.Minute

// newBackOffFactory returns a factory for the exponential policy used for
// transient provider errors. A fresh BackOff is needed per request.
func newBackOffFactory(maxElapsed time.Duration) func() backoff.BackOff {
	if maxElapsed <= 0 {
		maxElapsed = defaultMaxRetryElapsed
	}
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.MaxElapsedTime = maxElapsed
		b.MaxInterval = 30 * time.Second
		return b
	}
}

// retryableStatus reports whether an HTTP status is worth retrying.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// truncateBody keeps provider error bodies readable in logs and errors.
func truncateBody(b []byte) string {
	const limit = 512
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
