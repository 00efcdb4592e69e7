package report

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/aismm/internal/model"
)

// toneSentence returns the fixed opening sentence for an overall level.
func toneSentence(level int) string {
	switch {
	case level >= 4:
		return "The organization demonstrates strong AI security maturity, with established and measured practices across most areas."
	case level == 3:
		return "The organization has a defined AI security foundation with documented practices; targeted investment can move it toward measured management."
	case level == 2:
		return "The organization is developing its AI security capabilities; practices exist but are applied inconsistently."
	default:
		return "The organization is at an initial stage of AI security maturity, and foundational controls should be prioritized."
	}
}

// composeExecutiveSummary builds the templated summary: tone band, history
// context, optional trend, then one clause per pillar.
func composeExecutiveSummary(r *OrganizationSecurityReport) string {
	var b strings.Builder
	b.WriteString(toneSentence(r.OverallMaturityLevel))

	name := r.OrganizationName
	if name == "" {
		name = "the organization"
	}
	fmt.Fprintf(&b, " This report analyzes %d completed assessment(s) for %s, with an overall score of %.1f%% (level %d, %s).",
		r.AssessmentsAnalyzed, name, r.OverallScore, r.OverallMaturityLevel, model.LevelName(r.OverallMaturityLevel))

	if t := r.MaturityTrend; t != nil && t.Available {
		fmt.Fprintf(&b, " Since the first assessment maturity has been %s (%+.1f points).", t.Direction, t.ScoreChange)
	}

	for _, f := range r.PillarReports {
		if s := FirstSentence(f.ExecutiveSummary); s != "" {
			fmt.Fprintf(&b, " %s: %s", displayName(f), s)
		}
	}
	return b.String()
}

// FirstSentence returns the first sentence of s, terminated with a period
// when it has no closing punctuation.
func FirstSentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for i, r := range s {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next := i + 1
		if next == len(s) || s[next] == ' ' || s[next] == '\n' {
			return s[:next]
		}
	}
	if line, _, found := strings.Cut(s, "\n"); found {
		s = strings.TrimSpace(line)
	}
	return s + "."
}
