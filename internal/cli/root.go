// Package cli implements the overlod command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/overlod-admin/internal/app"
	"github.com/samvad-hq/overlod-admin/internal/config"
	"github.com/samvad-hq/overlod-admin/internal/logger"
	"github.com/samvad-hq/overlod-admin/internal/output"
	"github.com/samvad-hq/overlod-admin/pkg/discovery"
	"github.com/samvad-hq/overlod-admin/pkg/httpclient"
	"github.com/samvad-hq/overlod-admin/pkg/lod"
)

var version = "0.1.0"

// env is the per-invocation state shared by every subcommand.
type env struct {
	out     io.Writer
	errOut  io.Writer
	noColor bool
	printer *output.Printer
}

// NewRootCmd builds the command tree. Command output goes to out, failures
// and logs to errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	e := &env{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:     "overlod",
		Short:   "Administer the data views and external data sources of an overLOD server",
		Version: version,
		Long: `overlod talks to the DataView, EDS and SPARQL web services of an overLOD
Linked Open Data server. It can also watch the registered sources for
upstream changes and announce them to message brokers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			e.printer = output.NewPrinter(e.out, e.errOut, e.useColor())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.String("base-url", "", "overLOD server URL (env OVERLOD_BASE_URL)")
	pf.StringP("user", "u", "", "Basic auth user")
	pf.StringP("password", "p", "", "Basic auth password")
	pf.Int64("timeout", 30, "Request timeout in seconds")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.BoolVar(&e.noColor, "no-color", false, "Disable colored output")
	pf.Bool("legacy-query", false, "Send query values unencoded, as older servers expect")

	root.AddCommand(
		newViewsCmd(e),
		newEDSCmd(e),
		newSPARQLCmd(e),
		newDiscoverCmd(e),
		newWatchCmd(e),
	)
	return root
}

// Execute runs the command tree with args and returns the process exit code.
func Execute(ctx context.Context, args []string, out, errOut io.Writer) int {
	root := NewRootCmd(out, errOut)
	root.SetArgs(args)
	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}
	output.NewPrinter(out, errOut, useColor(cmd, errOut)).Failure(err)
	return 1
}

func (e *env) useColor() bool {
	f, ok := e.out.(*os.File)
	if !ok {
		return false
	}
	return output.UseColor(e.noColor, f)
}

func useColor(cmd *cobra.Command, w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || cmd == nil {
		return false
	}
	noColor, _ := cmd.Flags().GetBool("no-color")
	return output.UseColor(noColor, f)
}

// load resolves configuration for cmd and starts the logger.
func (e *env) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if _, err := logger.Init(cfg); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

// client loads configuration and builds the server client.
func (e *env) client(cmd *cobra.Command) (*lod.Client, error) {
	cfg, err := e.load(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireBaseURL(); err != nil {
		return nil, err
	}
	return app.NewLODClient(cfg, httpclient.WithLogger(logger.Default()))
}

// discoverer loads configuration and builds a page fetcher honouring the
// configured timeout.
func (e *env) discoverer(cmd *cobra.Command) (*discovery.Discoverer, error) {
	cfg, err := e.load(cmd)
	if err != nil {
		return nil, err
	}
	return discovery.New(httpclient.NewRestyClient(cfg.Timeout).WithBodyLimit(discovery.MaxPageBytes)), nil
}

// await runs fn asynchronously and blocks for its single result.
func await[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	res := <-lod.Async(ctx, fn)
	return res.Value, res.Err
}
