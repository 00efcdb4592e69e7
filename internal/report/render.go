package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HendryAvila/aismm/internal/model"
)

// Format selects a report rendering.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat accepts "markdown"/"md" and "json"; empty means markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown report format %q (want markdown or json)", s)
}

// Render renders r in the given format.
func Render(r *OrganizationSecurityReport, f Format) ([]byte, error) {
	if f == FormatJSON {
		return RenderJSON(r)
	}
	return []byte(RenderMarkdown(r)), nil
}

// RenderJSON serializes the report directly.
func RenderJSON(r *OrganizationSecurityReport) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// RenderMarkdown renders the report with a fixed section order: title and
// metadata, executive summary, overall metrics, pillar sections, insights,
// recommendations.
func RenderMarkdown(r *OrganizationSecurityReport) string {
	var b strings.Builder

	title := r.OrganizationName
	if title == "" {
		title = r.OrganizationID
	}
	fmt.Fprintf(&b, "# AI Security Maturity Report: %s\n\n", title)
	fmt.Fprintf(&b, "- Organization ID: `%s`\n", r.OrganizationID)
	fmt.Fprintf(&b, "- Generated: `%s`\n", r.ReportGeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- Assessments analyzed: `%d`\n\n", r.AssessmentsAnalyzed)

	b.WriteString("## Executive Summary\n\n")
	b.WriteString(r.ExecutiveSummary)
	b.WriteString("\n\n")

	b.WriteString("## Overall Metrics\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Overall score | %.1f%% |\n", r.OverallScore)
	fmt.Fprintf(&b, "| Maturity level | %d (%s) |\n", r.OverallMaturityLevel, model.LevelName(r.OverallMaturityLevel))
	for _, ps := range r.PillarScores {
		name := ps.PillarName
		if name == "" {
			name = ps.PillarID
		}
		if !ps.Assessed() {
			fmt.Fprintf(&b, "| %s | not assessed |\n", cell(name))
			continue
		}
		fmt.Fprintf(&b, "| %s | level %d (%s), raw %.2f |\n", cell(name), ps.MaturityLevel, model.LevelName(ps.MaturityLevel), ps.RawScore)
	}
	if t := r.MaturityTrend; t != nil {
		fmt.Fprintf(&b, "| Trend | %s (%+.1f points, %+d levels) |\n", t.Direction, t.ScoreChange, t.MaturityChange)
	}
	b.WriteString("\n")

	b.WriteString("## Pillar Analyses\n\n")
	for _, f := range r.PillarReports {
		fmt.Fprintf(&b, "### %s\n\n", displayName(f))
		if f.ExecutiveSummary != "" {
			b.WriteString(strings.TrimSpace(f.ExecutiveSummary))
			b.WriteString("\n\n")
		}
		writeBullets(&b, "Key Milestones", f.KeyMilestones)
		writeBullets(&b, "Achievements", f.Achievements)
		writeBullets(&b, "Areas for Improvement", f.AreasForImprovement)
	}

	b.WriteString("## Cross-Pillar Insights\n\n")
	for _, s := range r.CrossPillarInsights {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	b.WriteString("\n")

	b.WriteString("## Strategic Recommendations\n\n")
	if len(r.StrategicRecommendations) == 0 {
		b.WriteString("No recommendations.\n")
		return b.String()
	}
	b.WriteString("| # | Priority | Domain | Recommendation | Expected Impact | Effort |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for i, rec := range r.StrategicRecommendations {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s |\n", i+1,
			strings.ToUpper(string(rec.Priority)), cell(rec.Domain), cell(rec.Recommendation),
			cell(rec.ExpectedImpact), cell(rec.EffortEstimate))
	}
	return b.String()
}

func writeBullets(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "#### %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

// cell makes s safe for a single markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
