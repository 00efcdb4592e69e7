// Package commands implements the aismm command line.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/aismm/internal/server"
)

// NewRootCmd constructs the aismm root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "aismm",
		Short:         "AI Security Maturity Model assessment server",
		Long:          "aismm scores organizations against the AI Security Maturity Model over MCP and HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the aismm version",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "aismm v%s\n", server.Version)
		},
	})
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newReportCmd())

	return cmd
}
