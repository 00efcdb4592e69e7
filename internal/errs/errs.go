// Package errs defines the error taxonomy shared by the scoring and
// reporting packages.
//
// Three kinds exist:
//   - Validation: malformed or out-of-domain input (unknown question type,
//     out-of-range index, unknown priority). Never coerced.
//   - Precondition: a step invoked without its required inputs (no completed
//     assessments, missing pillar analyses).
//   - Upstream: a collaborator such as the pillar analyst produced output
//     that failed validation. The caller's request itself was fine.
//
// Every error carries a machine-checkable Reason code next to its
// human-readable message, so MCP tools and HTTP handlers can branch on it.
package errs

import (
	"errors"
	"fmt"
)

// Kind categorizes an Error.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindPrecondition
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPrecondition:
		return "precondition"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Reason codes used across packages.
const (
	ReasonUnknownQuestionType   = "unknown_question_type"
	ReasonIndexOutOfRange       = "index_out_of_range"
	ReasonNoOptions             = "no_options"
	ReasonUnknownOption         = "unknown_option"
	ReasonInvalidNumeric        = "invalid_numeric"
	ReasonPayloadMismatch       = "payload_mismatch"
	ReasonUnknownQuestion       = "unknown_question"
	ReasonUnknownDomain         = "unknown_domain"
	ReasonUnknownPillar         = "unknown_pillar"
	ReasonInvalidPriority       = "invalid_priority"
	ReasonDuplicatePillar       = "duplicate_pillar_report"
	ReasonMalformedReport       = "malformed_pillar_report"
	ReasonInvalidModel          = "invalid_model"
	ReasonInvalidTransition     = "invalid_status_transition"
	ReasonNoCompletedAssessment = "no_completed_assessments"
	ReasonMissingPillarReport   = "missing_pillar_report"
	ReasonInsufficientHistory   = "insufficient_history"
	ReasonNoAnalyzer            = "no_analyzer"
	ReasonInvalidArgument       = "invalid_argument"
	ReasonAssessmentNotOpen     = "assessment_not_in_progress"
)

// Error is the concrete error type for validation and precondition failures.
type Error struct {
	Kind    Kind
	Op      string // operation, e.g. "scoring.ScoreResponse"
	Reason  string // machine-checkable code
	Message string // human-readable description
	Err     error  // optional cause
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind, and by Reason when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// Validation builds a KindValidation error.
func Validation(op, reason, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Precondition builds a KindPrecondition error.
func Precondition(op, reason, format string, args ...any) error {
	return &Error{Kind: KindPrecondition, Op: op, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a new error of the given kind.
func Wrap(kind Kind, op, reason string, cause error, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Reason: reason, Message: fmt.Sprintf(format, args...), Err: cause}
}

// IsValidation reports whether err is, or wraps, a validation error.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// IsPrecondition reports whether err is, or wraps, a precondition error.
func IsPrecondition(err error) bool {
	return KindOf(err) == KindPrecondition
}

// IsUpstream reports whether err is, or wraps, an upstream error.
func IsUpstream(err error) bool {
	return KindOf(err) == KindUpstream
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ReasonOf returns the reason code of the first *Error in err's chain,
// or "" if there is none.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
