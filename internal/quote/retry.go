package quote

import (
	"net/http"
	"time"

	"github.com/solward/triarb/internal/triarb"
)

// classify maps a raw error/status-code pair to the error taxonomy
// and the retry delays it should use, per spec's four retry classes.
func classify(statusCode int, err error) (kind triarb.ErrorKind, delays []time.Duration) {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return triarb.ErrRateLimited, []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}
	case statusCode >= 500:
		return triarb.ErrTransient, []time.Duration{4 * time.Second, 8 * time.Second, 12 * time.Second}
	case statusCode >= 400:
		return triarb.ErrClientError, nil
	case statusCode == 0 && err != nil:
		// connection reset, timeout, DNS failure: no HTTP status was ever received.
		return triarb.ErrTransient, []time.Duration{3 * time.Second, 6 * time.Second, 9 * time.Second}
	default:
		return triarb.ErrTransient, nil
	}
}

const maxRetries = 3
const attemptTimeout = 20 * time.Second
