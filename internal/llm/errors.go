package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// TransientError represents a temporary backend failure (timeout, rate limit, 5xx)
// that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError represents a permanent failure that should not be retried.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal returns true if the error is fatal and should not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// statusError classifies a non-200 response. Rate limits and server errors are transient.
func statusError(provider string, status int, body []byte) error {
	err := fmt.Errorf("%s API returned status %d: %s", provider, status, string(body))
	if status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500 {
		return NewTransientError(err)
	}
	return NewFatalError(err)
}

// requestError classifies a transport failure. The caller's own cancellation is returned as is.
func requestError(provider string, err error) error {
	wrapped := fmt.Errorf("%s request failed: %w", provider, err)
	if errors.Is(err, context.Canceled) {
		return wrapped
	}
	return NewTransientError(wrapped)
}
