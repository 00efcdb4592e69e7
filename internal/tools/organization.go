package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/aismm/internal/store"
)

// OrganizationService is the part of the service the organization tools
// need.
type OrganizationService interface {
	CreateOrganization(ctx context.Context, name, industry, size string) (*store.Organization, error)
	ListOrganizations(ctx context.Context) ([]store.Organization, error)
}

// --- aismm_create_organization ---

// CreateOrganizationTool registers a new organization.
type CreateOrganizationTool struct {
	svc OrganizationService
}

// NewCreateOrganizationTool creates a CreateOrganizationTool.
func NewCreateOrganizationTool(svc OrganizationService) *CreateOrganizationTool {
	return &CreateOrganizationTool{svc: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateOrganizationTool) Definition() mcp.Tool {
	return mcp.NewTool("aismm_create_organization",
		mcp.WithDescription("Register an organization to assess. Returns its id, needed by aismm_start_assessment."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Organization name")),
		mcp.WithString("industry", mcp.Description("Industry, e.g. finance or healthcare")),
		mcp.WithString("size", mcp.Description("Size band, e.g. small, medium, large")),
	)
}

// Handle processes the aismm_create_organization tool call.
func (t *CreateOrganizationTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	org, err := t.svc.CreateOrganization(ctx,
		req.GetString("name", ""), req.GetString("industry", ""), req.GetString("size", ""))
	if err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"# Organization Created\n\n**ID:** `%s`\n**Name:** %s\n\nNext: call `aismm_start_assessment` with this id.",
		org.ID, org.Name)), nil
}

// --- aismm_list_organizations ---

// ListOrganizationsTool lists registered organizations.
type ListOrganizationsTool struct {
	svc OrganizationService
}

// NewListOrganizationsTool creates a ListOrganizationsTool.
func NewListOrganizationsTool(svc OrganizationService) *ListOrganizationsTool {
	return &ListOrganizationsTool{svc: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *ListOrganizationsTool) Definition() mcp.Tool {
	return mcp.NewTool("aismm_list_organizations",
		mcp.WithDescription("List registered organizations with their ids."),
	)
}

// Handle processes the aismm_list_organizations tool call.
func (t *ListOrganizationsTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orgs, err := t.svc.ListOrganizations(ctx)
	if err != nil {
		return errorResult(err)
	}
	if len(orgs) == 0 {
		return mcp.NewToolResultText("No organizations yet. Create one with `aismm_create_organization`."), nil
	}

	var b strings.Builder
	b.WriteString("| Name | ID | Industry | Size |\n|------|----|----------|------|\n")
	for _, o := range orgs {
		fmt.Fprintf(&b, "| %s | `%s` | %s | %s |\n", o.Name, o.ID, dash(o.Industry), dash(o.Size))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func dash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
