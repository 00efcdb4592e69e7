package commands

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/HendryAvila/aismm/internal/config"
	"github.com/HendryAvila/aismm/internal/httpapi"
	aismmserver "github.com/HendryAvila/aismm/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		httpAddr string
		stdio    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio, and optionally the HTTP reporting API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if httpAddr == "" && !stdio {
				return errors.New("nothing to serve: pass --http or keep --stdio")
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, a, httpAddr, stdio)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "also serve the HTTP reporting API on this address")
	cmd.Flags().Lookup("http").NoOptDefVal = defaultHTTPAddr()
	cmd.Flags().BoolVar(&stdio, "stdio", true, "serve MCP over stdin/stdout")
	return cmd
}

// errStdioClosed ends the group when the MCP client closes stdin.
var errStdioClosed = errors.New("stdio session closed")

// serve runs the enabled transports until one fails, stdin closes or ctx
// is cancelled. Stopping one transport stops the others.
func serve(ctx context.Context, a *app, httpAddr string, stdio bool) error {
	g, gctx := errgroup.WithContext(ctx)

	if httpAddr != "" {
		api := httpapi.New(a.svc, a.metrics.Handler())
		g.Go(func() error { return api.ListenAndServe(gctx, httpAddr) })
	}

	if stdio {
		stdioServer := server.NewStdioServer(aismmserver.New(a.svc, a.metrics))
		stdioServer.SetErrorLogger(log.New(os.Stderr, "", log.LstdFlags))
		g.Go(func() error {
			err := stdioServer.Listen(gctx, os.Stdin, os.Stdout)
			if err == nil || errors.Is(err, io.EOF) {
				return errStdioClosed
			}
			return err
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, errStdioClosed) || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// defaultHTTPAddr is the address used by a bare --http flag.
func defaultHTTPAddr() string {
	if cfg, err := loadConfig(); err == nil && cfg.HTTPAddr != "" {
		return cfg.HTTPAddr
	}
	return config.DefaultHTTPAddr
}
