package service

import (
	"errors"
	"testing"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "empty query",
			err:     &ValidationError{Field: "query", Message: "cannot be empty"},
			wantMsg: "validation error on field query: cannot be empty",
		},
		{
			name:    "negative limit",
			err:     &ValidationError{Field: "limit", Message: "must not be negative"},
			wantMsg: "validation error on field limit: must not be negative",
		},
		{
			name:    "wrapped by a caller",
			err:     WrapError(&ValidationError{Field: "question", Message: "cannot be empty"}, "converse"),
			wantMsg: "converse: validation error on field question: cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, ErrInvalidInput) {
				t.Error("validation errors should match ErrInvalidInput")
			}
			var ve *ValidationError
			if !errors.As(tt.err, &ve) {
				t.Error("errors.As should find the ValidationError")
			}
		})
	}
}

func TestWrapError(t *testing.T) {
	if got := WrapError(nil, "reload"); got != nil {
		t.Errorf("WrapError(nil) = %v, want nil", got)
	}

	got := WrapError(ErrNotReady, "catalog not loaded")
	if got.Error() != "catalog not loaded: catalog not ready" {
		t.Errorf("WrapError() = %q", got.Error())
	}
	if !errors.Is(got, ErrNotReady) {
		t.Error("WrapError() should keep the sentinel matchable")
	}
	if errors.Is(got, ErrExternalService) || errors.Is(got, ErrInvalidInput) {
		t.Error("WrapError() matched an unrelated sentinel")
	}
}
