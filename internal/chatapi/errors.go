package chatapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// DefaultRateLimitMessage is shown when a 429 carries no usable detail
const DefaultRateLimitMessage = "Rate limit exceeded. Please wait before trying again."

// RateLimitedError is returned for HTTP 429
type RateLimitedError struct {
	Detail string
}

func (e *RateLimitedError) Error() string {
	return e.Detail
}

// StatusError is returned for any other non-2xx status
type StatusError struct {
	StatusCode int
	Status     string
	Detail     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Server error: %s", e.Status)
}

// TransportError covers failures before a status was obtained, and success
// bodies that could not be decoded.
type TransportError struct {
	Op      string
	Err     error
	Timeout time.Duration // request timeout in effect, for messages
}

func (e *TransportError) Error() string {
	if e.TimedOut() {
		return fmt.Sprintf("request timed out after %s", e.Timeout)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TimedOut reports whether the request hit its deadline
func (e *TransportError) TimedOut() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}
