// Package resources implements the MCP resources of the maturity service.
//
// Resources are read-only documents the host can pull into context. They
// are addressed by aismm:// URIs.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/aismm/internal/model"
	"github.com/HendryAvila/aismm/internal/report"
	"github.com/HendryAvila/aismm/internal/store"
)

const (
	ModelURI         = "aismm://model"
	OrganizationsURI = "aismm://organizations"

	reportPrefix = "aismm://organizations/"
	reportSuffix = "/report"
)

// Service is the part of the service the resources read from.
type Service interface {
	Model() *model.Model
	ListOrganizations(ctx context.Context) ([]store.Organization, error)
	GenerateReport(ctx context.Context, orgID string) (*report.OrganizationSecurityReport, error)
}

// Handler serves the aismm:// resources.
type Handler struct {
	svc Service
}

// NewHandler creates a resource Handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// ModelResource is the loaded maturity model as JSON.
func (h *Handler) ModelResource() mcp.Resource {
	return mcp.NewResource(ModelURI, "AI Security Maturity Model",
		mcp.WithResourceDescription("Pillars, domains, maturity levels and questions of the loaded model"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleModel returns the model as JSON.
func (h *Handler) HandleModel(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(req.Params.URI, h.svc.Model())
}

// OrganizationsResource lists the registered organizations.
func (h *Handler) OrganizationsResource() mcp.Resource {
	return mcp.NewResource(OrganizationsURI, "Organizations",
		mcp.WithResourceDescription("Registered organizations with their ids"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleOrganizations returns the organizations as JSON.
func (h *Handler) HandleOrganizations(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	orgs, err := h.svc.ListOrganizations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	if orgs == nil {
		orgs = []store.Organization{}
	}
	return jsonResource(req.Params.URI, orgs)
}

// ReportTemplate addresses the markdown report of one organization.
func (h *Handler) ReportTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(reportPrefix+"{organization_id}"+reportSuffix, "Organization Report",
		mcp.WithTemplateDescription("Consolidated AI security maturity report of an organization, in markdown"),
		mcp.WithTemplateMIMEType("text/markdown"),
	)
}

// HandleReport generates and renders the report named by the URI. Domain
// errors come back as a text resource so the host can show them.
func (h *Handler) HandleReport(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	orgID, ok := reportOrgID(uri)
	if !ok {
		return nil, fmt.Errorf("malformed report uri %q", uri)
	}
	r, err := h.svc.GenerateReport(ctx, orgID)
	if err != nil {
		return errorResource(uri, err.Error()), nil
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "text/markdown", Text: report.RenderMarkdown(r)},
	}, nil
}

func reportOrgID(uri string) (string, bool) {
	if !strings.HasPrefix(uri, reportPrefix) || !strings.HasSuffix(uri, reportSuffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(uri, reportPrefix), reportSuffix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(data)},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
