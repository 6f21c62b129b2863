package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := New(ErrCodeUnknownPhase, "phase %q has no color token", "astrology")
	if got, want := err.Error(), `UNKNOWN_PHASE: phase "astrology" has no color token`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	cause := errors.New("connection reset")
	wrapped := Wrap(ErrCodeNetwork, cause, "fetch %s", "eval.json")
	if got, want := wrapped.Error(), "NETWORK_ERROR: fetch eval.json: connection reset"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(wrapped, cause) || errors.Unwrap(wrapped) != cause {
		t.Error("wrapped error does not unwrap to its cause")
	}
	if UserMessage(wrapped) != "fetch eval.json" {
		t.Errorf("UserMessage() = %q", UserMessage(wrapped))
	}
	if UserMessage(cause) != "connection reset" {
		t.Errorf("UserMessage(plain) = %q", UserMessage(cause))
	}
}

func TestCodeLookup(t *testing.T) {
	outer := fmt.Errorf("layout main: %w", New(ErrCodeUnknownStep, "step train"))
	tests := []struct {
		name string
		err  error
		code Code
	}{
		{"direct", New(ErrCodeMissingReference, "x"), ErrCodeMissingReference},
		{"through fmt wrap", outer, ErrCodeUnknownStep},
		{"outermost coded error wins", Wrap(ErrCodeTimeout, New(ErrCodeNetwork, "inner"), "outer"), ErrCodeTimeout},
		{"plain", errors.New("plain"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.code {
				t.Errorf("GetCode() = %q, want %q", got, tt.code)
			}
			if tt.code != "" && !Is(tt.err, tt.code) {
				t.Errorf("Is(%q) = false", tt.code)
			}
			if Is(tt.err, ErrCodeInternal) {
				t.Error("Is(INTERNAL_ERROR) = true")
			}
		})
	}
}

// Contract violations fail loudly; missing references and I/O failures are
// recovered locally.
func TestFailureFamilies(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{New(ErrCodeInvariantViolated, "two main workflows"), true},
		{New(ErrCodeUnknownPhase, "x"), true},
		{fmt.Errorf("build: %w", New(ErrCodeUnknownStep, "x")), true},
		{New(ErrCodeMissingReference, "x"), false},
		{Wrap(ErrCodeNetwork, errors.New("boom"), "fetch"), false},
		{New(ErrCodeTimeout, "x"), false},
		{errors.New("plain"), false},
	}
	for _, tt := range tests {
		if got := IsContractViolation(tt.err); got != tt.want {
			t.Errorf("IsContractViolation(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
