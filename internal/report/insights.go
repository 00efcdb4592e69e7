package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/HendryAvila/aismm/internal/model"
)

// FallbackInsight is emitted when no cross-pillar signal fires.
const FallbackInsight = "No recurring cross-pillar patterns were detected; review the individual pillar reports for domain-specific findings."

type theme struct {
	keywords []string
	sentence string // %d is the number of pillars
}

var themes = []theme{
	{
		keywords: []string{"governance", "policy", "policies"},
		sentence: "Governance and policy gaps recur across %d pillars; a unified AI security governance program would address them together.",
	},
	{
		keywords: []string{"monitoring", "detection", "detect"},
		sentence: "Monitoring and detection weaknesses appear in %d pillars; shared telemetry and detection engineering would lift all of them.",
	},
	{
		keywords: []string{"training", "skills", "awareness"},
		sentence: "Training and skills gaps span %d pillars; a cross-functional AI security enablement plan is recommended.",
	},
}

// imbalanceGap is the minimum level difference between two pillars that
// counts as an imbalance.
const imbalanceGap = 2

var levelMention = regexp.MustCompile(`(?i)\blevel\s+([1-5])\b`)

// StatedLevel returns the maturity level a fragment reports for its pillar:
// the structured MaturityLevel when set, otherwise the first "level N"
// mention in its executive summary. ok is false when neither exists.
func StatedLevel(f PillarReport) (level int, ok bool) {
	if f.MaturityLevel >= model.MinLevel && f.MaturityLevel <= model.MaxLevel {
		return f.MaturityLevel, true
	}
	m := levelMention.FindStringSubmatch(f.ExecutiveSummary)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// CrossPillarInsights derives organization-level observations from the
// fragments. The result is never empty.
//
// A theme fires only when its keywords occur in the improvement areas of
// more than one pillar. Order: themes, imbalance, momentum.
func CrossPillarInsights(fragments []PillarReport) []string {
	var out []string

	for _, th := range themes {
		pillars := 0
		for _, f := range fragments {
			if mentionsAny(f.AreasForImprovement, th.keywords) {
				pillars++
			}
		}
		if pillars > 1 {
			out = append(out, fmt.Sprintf(th.sentence, pillars))
		}
	}

	if s, ok := imbalanceInsight(fragments); ok {
		out = append(out, s)
	}

	achievements := 0
	for _, f := range fragments {
		achievements += len(f.Achievements)
	}
	if achievements > 0 {
		out = append(out, fmt.Sprintf(
			"Positive momentum: %d achievement(s) recorded across pillars provide a foundation to build on.", achievements))
	}

	if len(out) == 0 {
		out = append(out, FallbackInsight)
	}
	return out
}

func mentionsAny(items, keywords []string) bool {
	for _, item := range items {
		lower := strings.ToLower(item)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

func imbalanceInsight(fragments []PillarReport) (string, bool) {
	var high, low *PillarReport
	var highLevel, lowLevel int
	for i := range fragments {
		lvl, ok := StatedLevel(fragments[i])
		if !ok {
			continue
		}
		if high == nil || lvl > highLevel {
			high, highLevel = &fragments[i], lvl
		}
		if low == nil || lvl < lowLevel {
			low, lowLevel = &fragments[i], lvl
		}
	}
	if high == nil || highLevel-lowLevel < imbalanceGap {
		return "", false
	}
	return fmt.Sprintf(
		"Maturity is uneven across pillars: %s is at level %d (%s) while %s is at level %d (%s); rebalance investment toward %s.",
		displayName(*high), highLevel, model.LevelName(highLevel),
		displayName(*low), lowLevel, model.LevelName(lowLevel),
		displayName(*low)), true
}

func displayName(f PillarReport) string {
	if f.PillarName != "" {
		return f.PillarName
	}
	return f.PillarID
}
