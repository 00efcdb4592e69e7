package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/aismm/cmd/aismm/internal/clierr"
	"github.com/HendryAvila/aismm/internal/model"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a maturity model file (the embedded model when no path is given)",
		Long: "Validate a maturity model YAML file and print its summary.\n\n" +
			"Exit codes: 0 valid, 1 model rule violations, 2 unreadable or malformed file.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, data := "embedded model", model.DefaultYAML()
			if len(args) == 1 {
				name = args[0]
				var err error
				if data, err = os.ReadFile(name); err != nil {
					return clierr.Wrap(clierr.CodeUsage, "reading model", err)
				}
			}
			return validate(cmd.OutOrStdout(), name, data)
		},
	}
}

func validate(out io.Writer, name string, data []byte) error {
	m, err := model.Parse(data)

	var issues model.Issues
	switch {
	case err == nil:
	case errors.As(err, &issues):
		fmt.Fprintf(out, "Validation FAILED for %s with %d issue(s):\n", name, len(issues))
		for _, is := range issues {
			fmt.Fprintf(out, " - %s\n", is)
		}
		return clierr.Silent(clierr.CodeFailure)
	default:
		return clierr.Wrap(clierr.CodeUsage, "parsing "+name, err)
	}

	sum := m.Summarize()
	fmt.Fprintf(out, "✓ %s parsed and validated (%s v%s)\n\n", name, m.Name, m.Version)
	fmt.Fprintf(out, "Pillars: %d\n", sum.Pillars)
	fmt.Fprintf(out, "Domains: %d\n", sum.Domains)
	fmt.Fprintf(out, "Total questions: %d\n", sum.Questions)
	fmt.Fprintf(out, "Total key controls: %d\n", sum.KeyControls)
	fmt.Fprintf(out, "MITRE ATLAS mappings: %s\n", yesNo(sum.MITREAtlas))
	fmt.Fprintf(out, "OWASP GenAI mappings: %s\n", yesNo(sum.OWASPGenAI))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
