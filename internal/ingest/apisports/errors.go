package apisports

import (
	"errors"
	"fmt"
)

// ErrMissingResponse is returned when the envelope carries no response field.
var ErrMissingResponse = errors.New("apisports: response field missing from payload")

// RateLimitError is returned when the provider kept rate limiting past the
// configured retry cap.
type RateLimitError struct {
	Endpoint string
	Attempts int
	Detail   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("apisports: %s still rate limited after %d attempts: %s", e.Endpoint, e.Attempts, e.Detail)
}

// StatusError reports a non-2xx response that did not carry a usable envelope.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("apisports: %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// AsRateLimitError unwraps err into a RateLimitError.
func AsRateLimitError(err error) (*RateLimitError, bool) {
	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return rlErr, true
	}
	return nil, false
}
