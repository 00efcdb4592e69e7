// Package scoring turns questionnaire responses into domain, pillar and
// assessment maturity scores, and derives trends and improvement gaps.
//
// Everything here is a pure function of its inputs: no I/O, no logging,
// no package-level mutable state. Malformed input returns an *errs.Error
// of kind Validation; it is never coerced.
package scoring

import (
	"math"
	"strings"

	"github.com/HendryAvila/aismm/internal/errs"
	"github.com/HendryAvila/aismm/internal/model"
)

// Numeric bucket boundaries. Fixed model constants, not user-configurable:
// 0→1, (0,5)→2, [5,10)→3, [10,20)→4, ≥20→5.
const (
	numericLow    = 5.0
	numericMedium = 10.0
	numericHigh   = 20.0
)

// Response is one answer to one question within one assessment. Which
// payload field is meaningful depends on the question type.
type Response struct {
	AssessmentID string   `json:"assessment_id,omitempty"`
	DomainID     string   `json:"domain_id"`
	QuestionID   string   `json:"question_id"`
	Index        *int     `json:"response_index,omitempty"`
	Value        *float64 `json:"response_value,omitempty"`
	Bool         *bool    `json:"response_bool,omitempty"`
	Text         string   `json:"response_text,omitempty"`
	Selected     []string `json:"selected_options,omitempty"`
}

// HasPayload reports whether the response carries any answer at all.
func (r Response) HasPayload() bool {
	return r.Index != nil || r.Value != nil || r.Bool != nil ||
		strings.TrimSpace(r.Text) != "" || len(r.Selected) > 0
}

// ScoredResponse is a Response with its derived score. Scored is false for
// free-text answers and for responses without a scoreable payload.
type ScoredResponse struct {
	Response
	Score  int  `json:"score,omitempty"`
	Scored bool `json:"scored"`
}

// ScoreResponse maps one answer to a maturity score in 1..5.
//
// scored is false when the question type is unscored (free text) or the
// response is empty (e.g. zero options selected). An answer given in a field
// the type does not read, out-of-range indexes, unknown option labels,
// invalid numbers and unknown question types fail with a validation error
// naming the question. Text is read only by free-text questions and, as
// yes/no, by boolean ones.
func ScoreResponse(q model.Question, r Response) (score int, scored bool, err error) {
	const op = "scoring.ScoreResponse"

	switch q.Type.Normalize() {
	case model.QuestionSingleChoice, model.QuestionScale:
		if r.Index == nil {
			return 0, false, payloadMismatch(op, q, r, "response_index")
		}
		n := len(q.Options)
		idx := *r.Index
		if n == 0 {
			return 0, false, errs.Validation(op, errs.ReasonNoOptions,
				"question %s has no options to select from", q.ID)
		}
		if idx < 0 || idx >= n {
			return 0, false, errs.Validation(op, errs.ReasonIndexOutOfRange,
				"question %s: option index %d out of range [0,%d]", q.ID, idx, n-1)
		}
		if n == 1 {
			// A single option can only mean full maturity.
			return model.MaxLevel, true, nil
		}
		return int(math.Round(float64(idx)/float64(n-1)*4)) + 1, true, nil

	case model.QuestionMultipleChoice:
		if len(r.Selected) == 0 {
			return 0, false, payloadMismatch(op, q, r, "selected_options")
		}
		n := len(q.Options)
		if n == 0 {
			return 0, false, errs.Validation(op, errs.ReasonNoOptions,
				"question %s has no options to select from", q.ID)
		}
		known := make(map[string]bool, n)
		for _, opt := range q.Options {
			known[opt] = true
		}
		picked := make(map[string]bool, len(r.Selected))
		for _, label := range r.Selected {
			if !known[label] {
				return 0, false, errs.Validation(op, errs.ReasonUnknownOption,
					"question %s: %q is not one of its options", q.ID, label)
			}
			picked[label] = true
		}
		s := int(math.Ceil(float64(len(picked)) / float64(n) * 5))
		return min(model.MaxLevel, s), true, nil

	case model.QuestionBoolean:
		switch {
		case r.Bool != nil:
			if *r.Bool {
				return model.MaxLevel, true, nil
			}
			return model.MinLevel, true, nil
		case strings.TrimSpace(r.Text) != "":
			if isAffirmative(r.Text) {
				return model.MaxLevel, true, nil
			}
			return model.MinLevel, true, nil
		}
		return 0, false, payloadMismatch(op, q, r, "response_bool or yes/no response_text")

	case model.QuestionNumeric:
		if r.Value == nil {
			return 0, false, payloadMismatch(op, q, r, "response_value")
		}
		v := *r.Value
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return 0, false, errs.Validation(op, errs.ReasonInvalidNumeric,
				"question %s: numeric answer must be a finite non-negative number, got %v", q.ID, v)
		}
		return numericBucket(v), true, nil

	case model.QuestionFreeText:
		if r.Index != nil || r.Value != nil || r.Bool != nil || len(r.Selected) > 0 {
			return 0, false, payloadMismatch(op, q, r, "response_text")
		}
		return 0, false, nil

	default:
		return 0, false, errs.Validation(op, errs.ReasonUnknownQuestionType,
			"question %s has unknown question type %q", q.ID, q.Type)
	}
}

// payloadMismatch is nil for an empty response and a validation error when
// the response carries an answer in a field the question type does not read.
func payloadMismatch(op string, q model.Question, r Response, field string) error {
	if !r.HasPayload() {
		return nil
	}
	return errs.Validation(op, errs.ReasonPayloadMismatch,
		"question %s (%s) expects %s", q.ID, q.Type.Normalize(), field)
}

func numericBucket(v float64) int {
	switch {
	case v == 0:
		return 1
	case v < numericLow:
		return 2
	case v < numericMedium:
		return 3
	case v < numericHigh:
		return 4
	default:
		return 5
	}
}

func isAffirmative(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "y":
		return true
	}
	return false
}

// ScoreResponses scores every response of one domain. A response whose
// question is not defined in the domain fails with a validation error.
func ScoreResponses(d model.Domain, responses []Response) ([]ScoredResponse, error) {
	const op = "scoring.ScoreResponses"

	out := make([]ScoredResponse, 0, len(responses))
	for _, r := range responses {
		q, ok := d.Question(r.QuestionID)
		if !ok {
			return nil, errs.Validation(op, errs.ReasonUnknownQuestion,
				"question %s is not defined in domain %s", r.QuestionID, d.ID)
		}
		score, scored, err := ScoreResponse(q, r)
		if err != nil {
			return nil, err
		}
		if r.DomainID == "" {
			r.DomainID = d.ID
		}
		out = append(out, ScoredResponse{Response: r, Score: score, Scored: scored})
	}
	return out, nil
}
