package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/aismm/internal/report"
)

// ReportService generates organization reports.
type ReportService interface {
	GenerateReport(ctx context.Context, orgID string) (*report.OrganizationSecurityReport, error)
}

// ReportTool generates the consolidated security report of an organization.
type ReportTool struct {
	svc ReportService
}

// NewReportTool creates a ReportTool.
func NewReportTool(svc ReportService) *ReportTool {
	return &ReportTool{svc: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *ReportTool) Definition() mcp.Tool {
	return mcp.NewTool("aismm_report",
		mcp.WithDescription(
			"Generate the consolidated AI security maturity report of an organization: one analysis per pillar, "+
				"cross-pillar insights, strategic recommendations and the maturity trend. "+
				"Needs at least one completed assessment. Can take minutes with an LLM analyzer.",
		),
		mcp.WithString("organization_id", mcp.Required(), mcp.Description("Organization id")),
		mcp.WithString("format", mcp.Description("markdown (default) or json"), mcp.Enum("markdown", "json")),
	)
}

// Handle processes the aismm_report tool call.
func (t *ReportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("organization_id", "")
	if id == "" {
		return mcp.NewToolResultError("'organization_id' is required"), nil
	}
	format, err := report.ParseFormat(req.GetString("format", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	r, err := t.svc.GenerateReport(ctx, id)
	if err != nil {
		return errorResult(err)
	}
	out, err := report.Render(r, format)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}
