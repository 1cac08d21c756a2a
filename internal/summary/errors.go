package summary

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimited means the language model asked us to back off.
	ErrRateLimited = errors.New("summary provider rate limited the request")
	// ErrTimeout means the language model did not answer within the deadline.
	ErrTimeout = errors.New("summary provider timed out")
	// ErrNotConfigured means no API key is set.
	ErrNotConfigured = errors.New("summary provider is not configured")
)

// UpstreamError is any other failure talking to the language model.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("summary provider returned status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("summary provider failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
