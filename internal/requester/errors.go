package requester

import (
	"errors"
	"fmt"
)

// APIError is returned for any response with status >= 400.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %s (status: %d)", e.Message, e.StatusCode)
}

// ReadError is returned when a successful response body could not be read
// in full.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read response body: %v", e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// StatusCode extracts the HTTP status from an *APIError anywhere in err's
// chain, or returns 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
