package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

var errPathEscape = Validationf("path escape detected")

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
		msg  string
	}{
		{"validation", Validationf("command %q not allowed", "rm"), ErrValidation, `command "rm" not allowed`},
		{"not found", NotFound("file not found"), ErrNotFound, "file not found"},
		{"unauthorized", Unauthorized("invalid token"), ErrUnauthorized, "invalid token"},
		{"internal", Internal("GH_TOKEN missing"), ErrInternal, "GH_TOKEN missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.kind) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.kind)
			}
			if tt.err.Error() != tt.msg {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.msg)
			}
		})
	}
}

func TestWrappedSentinelStillMatches(t *testing.T) {
	wrapped := fmt.Errorf("read file: %w", errPathEscape)

	if !errors.Is(wrapped, errPathEscape) {
		t.Error("expected wrapped error to match its sentinel")
	}
	if !errors.Is(wrapped, ErrValidation) {
		t.Error("expected wrapped error to match its kind")
	}

	var de *Error
	if !errors.As(wrapped, &de) || de.Detail != "path escape detected" {
		t.Errorf("errors.As did not recover the detail: %+v", de)
	}
}

func TestTimeoutError(t *testing.T) {
	err := fmt.Errorf("run: %w", &TimeoutError{After: 2 * time.Second, Output: "partial"})

	if !errors.Is(err, ErrTimeout) {
		t.Fatal("expected ErrTimeout kind")
	}
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatal("expected *TimeoutError")
	}
	if te.Output != "partial" {
		t.Errorf("Output = %q", te.Output)
	}
	if te.Error() != "command timed out after 2s" {
		t.Errorf("Error() = %q", te.Error())
	}
}
