package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/aismm/internal/model"
)

// ModelTool describes the maturity model: the whole outline, or one domain
// with its levels, questions and framework mappings.
type ModelTool struct {
	model *model.Model
}

// NewModelTool creates a ModelTool.
func NewModelTool(m *model.Model) *ModelTool {
	return &ModelTool{model: m}
}

// Definition returns the MCP tool definition for registration.
func (t *ModelTool) Definition() mcp.Tool {
	return mcp.NewTool("aismm_model",
		mcp.WithDescription(
			"Describe the AI Security Maturity Model. Without arguments lists pillars and domains; "+
				"with `domain_id` shows that domain's levels, questions (ids, types, options) and key controls.",
		),
		mcp.WithString("domain_id", mcp.Description("Domain to describe in detail")),
	)
}

// Handle processes the aismm_model tool call.
func (t *ModelTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if id := req.GetString("domain_id", ""); id != "" {
		d, ok := t.model.Domain(id)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown domain %q (reason: unknown_domain)", id)), nil
		}
		return mcp.NewToolResultText(DescribeDomain(d)), nil
	}
	return mcp.NewToolResultText(DescribeModel(t.model)), nil
}

// DescribeModel renders the pillar and domain outline of m.
func DescribeModel(m *model.Model) string {
	var b strings.Builder
	sum := m.Summarize()
	fmt.Fprintf(&b, "# %s (v%s)\n\n", m.Name, m.Version)
	fmt.Fprintf(&b, "%d pillars, %d domains, %d questions, %d key controls.\n",
		sum.Pillars, sum.Domains, sum.Questions, sum.KeyControls)

	for _, pid := range m.PillarIDs() {
		p := m.Pillars[pid]
		fmt.Fprintf(&b, "\n## %s (`%s`)\n\n%s\n\n", p.Name, p.ID, p.Description)
		b.WriteString("| Domain | ID | Weight | Questions |\n|--------|----|--------|-----------|\n")
		for _, d := range m.DomainsForPillar(pid) {
			fmt.Fprintf(&b, "| %s | `%s` | %.1f | %d |\n", d.Name, d.ID, d.Weight, len(d.Questions))
		}
	}
	return b.String()
}

// DescribeDomain renders one domain in detail.
func DescribeDomain(d model.Domain) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s (`%s`)\n\n%s\n\n**Pillar:** %s\n**Weight:** %.1f\n",
		d.Name, d.ID, d.Description, d.Pillar, d.Weight)

	b.WriteString("\n## Maturity Levels\n\n")
	for _, l := range d.Levels {
		fmt.Fprintf(&b, "%d. **%s**: %s\n", l.Level, l.Name, l.Description)
	}

	if len(d.Questions) > 0 {
		b.WriteString("\n## Questions\n")
		for _, q := range d.Questions {
			fmt.Fprintf(&b, "\n### `%s` (%s)\n\n%s\n", q.ID, q.Type.Normalize(), q.Text)
			if q.HelpText != "" {
				fmt.Fprintf(&b, "\n_%s_\n", q.HelpText)
			}
			for i, opt := range q.Options {
				fmt.Fprintf(&b, "- [%d] %s\n", i, opt)
			}
		}
	}

	if len(d.KeyControls) > 0 {
		b.WriteString("\n## Key Controls\n\n")
		for _, c := range d.KeyControls {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}

	if len(d.FrameworkAlignment) > 0 {
		b.WriteString("\n## Framework Alignment\n\n")
		frameworks := make([]string, 0, len(d.FrameworkAlignment))
		for f := range d.FrameworkAlignment {
			frameworks = append(frameworks, f)
		}
		sort.Strings(frameworks)
		for _, f := range frameworks {
			fmt.Fprintf(&b, "- **%s:** %s\n", f, strings.Join(d.FrameworkAlignment[f], ", "))
		}
	}
	return b.String()
}
