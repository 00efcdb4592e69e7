package clierr

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCodeOf(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", cause, CodeFailure},
		{"usage", Wrap(CodeUsage, "parse", cause), CodeUsage},
		{"wrapped twice", fmt.Errorf("outer: %w", Wrap(CodeUsage, "parse", cause)), CodeUsage},
		{"zero normalized", Wrap(0, "x", nil), CodeFailure},
		{"silent", Silent(CodeUsage), CodeUsage},
	}
	for _, tt := range tests {
		if got := ExitCodeOf(tt.err); got != tt.want {
			t.Errorf("%s: ExitCodeOf = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestExitError_Message(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(CodeUsage, "reading model", cause)
	if err.Error() != "reading model: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable through errors.Is")
	}
	if IsSilent(err) || !IsSilent(Silent(1)) {
		t.Error("IsSilent mismatch")
	}
}
