package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/aismm/internal/report"
)

func newReportCmd() *cobra.Command {
	var (
		orgID  string
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the consolidated report of an organization",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			r, err := a.svc.GenerateReport(cmd.Context(), orgID)
			if err != nil {
				return err
			}
			data, err := report.Render(r, f)
			if err != nil {
				return fmt.Errorf("rendering report: %w", err)
			}

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "report written to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&orgID, "org", "", "organization id")
	cmd.Flags().StringVar(&format, "format", "markdown", "markdown or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
