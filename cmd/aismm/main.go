// aismm: AI Security Maturity Model assessment server.
//
// Scores organizations against the maturity model over MCP (stdio), serves
// a read-only reporting API over HTTP and validates model files.
//
// Usage:
//
//	aismm serve [--http [addr]]   # MCP server on stdio, optional HTTP API
//	aismm validate [path]         # validate a model file
//	aismm report --org ID         # render an organization report
//	aismm version
package main

import (
	"fmt"
	"os"

	"github.com/HendryAvila/aismm/cmd/aismm/commands"
	"github.com/HendryAvila/aismm/cmd/aismm/internal/clierr"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		if !clierr.IsSilent(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(clierr.ExitCodeOf(err))
	}
}
