package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/aismm/internal/scoring"
)

// AnalysisService is the part of the service the analysis tools need.
type AnalysisService interface {
	Gaps(ctx context.Context, assessmentID, pillarID string) (scoring.GapAnalysis, error)
	Trend(ctx context.Context, orgID string) (scoring.MaturityTrend, error)
}

// --- aismm_gaps ---

// GapsTool ranks the improvement opportunities of an assessment.
type GapsTool struct {
	svc AnalysisService
}

// NewGapsTool creates a GapsTool.
func NewGapsTool(svc AnalysisService) *GapsTool {
	return &GapsTool{svc: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *GapsTool) Definition() mcp.Tool {
	return mcp.NewTool("aismm_gaps",
		mcp.WithDescription(
			"Rank the domains of an assessment by improvement priority, (5 - level) x domain weight. "+
				"Domains without scored answers are listed separately.",
		),
		mcp.WithString("assessment_id", mcp.Required(), mcp.Description("Assessment id")),
		mcp.WithString("pillar", mcp.Description("Restrict to one pillar id")),
		mcp.WithString("format", mcp.Description("markdown (default) or json"), mcp.Enum("markdown", "json")),
	)
}

// Handle processes the aismm_gaps tool call.
func (t *GapsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("assessment_id", "")
	if id == "" {
		return mcp.NewToolResultError("'assessment_id' is required"), nil
	}
	ga, err := t.svc.Gaps(ctx, id, req.GetString("pillar", ""))
	if err != nil {
		return errorResult(err)
	}
	if req.GetString("format", "markdown") == "json" {
		text, err := jsonText(ga)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(text), nil
	}

	var b strings.Builder
	b.WriteString("# Improvement Gaps\n\n")
	if ga.PillarFilter != "" {
		fmt.Fprintf(&b, "**Pillar:** %s\n\n", ga.PillarFilter)
	}
	if len(ga.Gaps) == 0 {
		b.WriteString("No assessed domains yet.\n")
	} else {
		b.WriteString("| # | Domain | Level | Weight | Priority | Tier |\n|---|--------|-------|--------|----------|------|\n")
		for i, g := range ga.Gaps {
			fmt.Fprintf(&b, "| %d | %s | %d (%s) | %.1f | %.1f | %s |\n",
				i+1, g.DomainName, g.MaturityLevel, g.LevelName, g.Weight, g.Priority, g.Tier)
		}
		for _, g := range ga.Critical() {
			if g.NextLevel != "" {
				fmt.Fprintf(&b, "\n**%s next step:** %s\n", g.DomainName, g.NextLevel)
			}
		}
	}
	if len(ga.Unassessed) > 0 {
		fmt.Fprintf(&b, "\n## Not Assessed (%d)\n\n", len(ga.Unassessed))
		for _, d := range ga.Unassessed {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

// --- aismm_trend ---

// TrendTool compares the completed assessments of an organization.
type TrendTool struct {
	svc AnalysisService
}

// NewTrendTool creates a TrendTool.
func NewTrendTool(svc AnalysisService) *TrendTool {
	return &TrendTool{svc: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *TrendTool) Definition() mcp.Tool {
	return mcp.NewTool("aismm_trend",
		mcp.WithDescription(
			"Compare the completed and archived assessments of an organization: "+
				"overall direction, per-domain and per-pillar level changes. Needs at least two.",
		),
		mcp.WithString("organization_id", mcp.Required(), mcp.Description("Organization id")),
		mcp.WithString("format", mcp.Description("markdown (default) or json"), mcp.Enum("markdown", "json")),
	)
}

// Handle processes the aismm_trend tool call.
func (t *TrendTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("organization_id", "")
	if id == "" {
		return mcp.NewToolResultError("'organization_id' is required"), nil
	}
	tr, err := t.svc.Trend(ctx, id)
	if err != nil {
		return errorResult(err)
	}
	if req.GetString("format", "markdown") == "json" {
		text, err := jsonText(tr)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(text), nil
	}
	if !tr.Available {
		return mcp.NewToolResultText(fmt.Sprintf("Trend not available: %s", tr.Reason)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Maturity Trend\n\n**Direction:** %s\n**Assessments compared:** %d\n", tr.Direction, tr.AssessmentsConsidered)
	fmt.Fprintf(&b, "**Score change:** %+.1f points\n**Maturity change:** %+d levels\n", tr.ScoreChange, tr.MaturityChange)
	if len(tr.Pillars) > 0 {
		b.WriteString("\n## Pillars\n\n| Pillar | Previous | Latest | Direction |\n|--------|----------|--------|-----------|\n")
		for _, p := range tr.Pillars {
			fmt.Fprintf(&b, "| %s | %d | %d | %s |\n", p.PillarID, p.PreviousLevel, p.LatestLevel, p.Direction)
		}
	}
	if len(tr.Domains) > 0 {
		b.WriteString("\n## Domains\n\n| Domain | Previous | Latest | Direction |\n|--------|----------|--------|-----------|\n")
		for _, d := range tr.Domains {
			fmt.Fprintf(&b, "| %s | %d | %d | %s |\n", d.DomainID, d.PreviousLevel, d.LatestLevel, d.Direction)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}
