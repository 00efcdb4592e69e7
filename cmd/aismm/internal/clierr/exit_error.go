// Package clierr carries process exit codes through cobra's error return.
package clierr

import (
	"errors"
	"fmt"
)

// Exit codes.
const (
	CodeFailure = 1 // validation failed, or any unclassified error
	CodeUsage   = 2 // input could not be read or parsed
)

// ExitCoder is an error that chooses the process exit code.
type ExitCoder interface {
	error
	ExitCode() int
}

// ExitError pairs an error with an exit code.
type ExitError struct {
	code  int
	msg   string
	cause error
}

func (e *ExitError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return fmt.Sprintf("%s: %v", e.msg, e.cause)
}

// ExitCode returns the process exit code.
func (e *ExitError) ExitCode() int { return e.code }

// Unwrap returns the cause.
func (e *ExitError) Unwrap() error { return e.cause }

// Wrap creates an ExitError around cause. A nil cause yields a plain
// message error.
func Wrap(code int, msg string, cause error) error {
	return &ExitError{code: normalize(code), msg: msg, cause: cause}
}

// Silent is an exit code with no message; the command already reported the
// problem on its own output.
func Silent(code int) error {
	return &ExitError{code: normalize(code)}
}

// ExitCodeOf extracts the exit code of err: 0 for nil, 1 when err carries
// no code.
func ExitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var ec ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return CodeFailure
}

// IsSilent reports whether err should exit without printing anything.
func IsSilent(err error) bool {
	var e *ExitError
	return errors.As(err, &e) && e.msg == "" && e.cause == nil
}

func normalize(code int) int {
	if code <= 0 {
		return CodeFailure
	}
	return code
}
