package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusError(t *testing.T) {
	tests := []struct {
		status        int
		wantTransient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusRequestTimeout, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{529, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := statusError("openai", tt.status, []byte("boom"))
			if IsTransient(err) != tt.wantTransient {
				t.Errorf("IsTransient = %v, want %v", IsTransient(err), tt.wantTransient)
			}
			if IsFatal(err) == tt.wantTransient {
				t.Errorf("IsFatal = %v, want %v", IsFatal(err), !tt.wantTransient)
			}
		})
	}
}

func TestRequestError(t *testing.T) {
	err := requestError("openai", errors.New("connection reset"))
	if !IsTransient(err) {
		t.Errorf("expected transport failure to be transient")
	}

	err = requestError("openai", fmt.Errorf("do: %w", context.Canceled))
	if IsTransient(err) || IsFatal(err) {
		t.Errorf("expected cancellation to be unclassified, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected errors.Is(err, context.Canceled)")
	}
}

func TestClassifiedErrorsUnwrap(t *testing.T) {
	base := errors.New("root cause")
	if !errors.Is(NewTransientError(base), base) {
		t.Error("TransientError should unwrap to its cause")
	}
	if !errors.Is(NewFatalError(base), base) {
		t.Error("FatalError should unwrap to its cause")
	}
	wrapped := fmt.Errorf("judge equivalence: %w", NewTransientError(base))
	if !IsTransient(wrapped) {
		t.Error("IsTransient should see through wrapping")
	}
}
