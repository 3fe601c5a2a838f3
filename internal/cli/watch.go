package cli

import (
	"github.com/spf13/cobra"

	"github.com/samvad-hq/overlod-admin/internal/app"
	"github.com/samvad-hq/overlod-admin/internal/logger"
)

func newWatchCmd(e *env) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch registered sources for upstream changes",
		Long: `Periodically probe the Last-Modified header of every registered web source.
Changes are published to the brokers listed in the publishers file and, with
--auto-refresh, re-imported on the server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.load(cmd)
			if err != nil {
				return err
			}
			defer logger.Close()

			ctx := cmd.Context()
			w, err := app.NewWatcher(ctx, cfg, logger.Default())
			if err != nil {
				return err
			}
			defer func() {
				if cerr := w.Close(); cerr != nil {
					logger.ErrorObj("watcher close failed", "error", cerr.Error())
				}
			}()

			if once {
				report, err := w.RunOnce(ctx)
				e.printer.Report(report)
				return err
			}
			return w.Run(ctx)
		},
	}
	f := cmd.Flags()
	f.Int64("interval", 3600, "Seconds between watch passes")
	f.Bool("auto-refresh", false, "Re-import a source on the server when it changes")
	f.String("publishers", "./configs/publishers.yaml", "Publishers registry file")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	f.BoolVar(&once, "once", false, "Run a single pass, print its report and exit")

	cmd.AddCommand(newWatchStatusCmd(e))
	return cmd
}

func newWatchStatusCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the Last-Modified stamps recorded by previous passes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.load(cmd)
			if err != nil {
				return err
			}
			store, err := app.OpenLedger(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Entries()
			if err != nil {
				return err
			}
			e.printer.Stamps(entries)
			return nil
		},
	}
}
