package httpx

import (
	"errors"
	"fmt"
)

// ErrCircuitOpen is wrapped by a RequestError when the source's circuit
// breaker rejects a request without sending it.
var ErrCircuitOpen = errors.New("circuit breaker open")

// TransientError is a timeout-class failure of a single page fetch. It is
// returned after the client's retry budget is spent.
type TransientError struct {
	Source   string
	URL      string // scheme, host and path only; query strings carry credentials
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: request to %s timed out after %d attempt(s): %v", e.Source, e.URL, e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// RequestError is a non-retryable failure: a transport error other than a
// timeout, a non-2xx status, or a body that does not decode.
type RequestError struct {
	Source     string
	URL        string
	StatusCode int // 0 when no response was received
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: request to %s failed with status %d: %v", e.Source, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: request to %s failed: %v", e.Source, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
