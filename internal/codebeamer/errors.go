package codebeamer

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// maxErrorBody bounds how much of a response body is kept in APIError.
const maxErrorBody = 512

// ErrMissingID is returned when a successful response carries no item id.
var ErrMissingID = errors.New("codebeamer: response missing item id")

// APIError is a non-2xx response from the tracker.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("codebeamer: create item: %d %s: %s",
		e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

func newAPIError(status int, body []byte) *APIError {
	if len(body) > maxErrorBody {
		body = append(body[:maxErrorBody:maxErrorBody], "..."...)
	}
	return &APIError{StatusCode: status, Body: string(body)}
}

// retryableError marks a failure worth another attempt.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryableError(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// retryableStatus reports whether a status is safe to retry for a
// non-idempotent POST. Only 429 guarantees the item was not created; a
// gateway error may follow a create that reached the tracker.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests
}

// notSent reports whether a transport error happened before the request
// left this host: a failed dial or name lookup. Timeouts and resets after
// connecting are not retried since the tracker may have created the item.
func notSent(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
