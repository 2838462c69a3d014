// Package remote classifies failures from upstream HTTP services so callers
// can decide whether a retry is worthwhile.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

// maxErrorBody caps how much of an error response is kept for logs.
const maxErrorBody = 4 << 10

// StatusError is returned when an upstream service answers with a non-2xx status.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Code, e.Body)
}

// CheckResponse returns a *StatusError for non-2xx responses. The body is read
// but not closed.
func CheckResponse(service string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Service: service, Code: resp.StatusCode, Body: string(body)}
}

// Retryable reports whether err is a transient failure: a transport error,
// a timeout, a 429 or a 5xx. Cancellation by the caller is never retryable,
// and neither is a 2xx response that fails validation.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
