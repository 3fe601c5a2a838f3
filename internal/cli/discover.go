package cli

import (
	"github.com/spf13/cobra"

	"github.com/samvad-hq/overlod-admin/pkg/lod"
)

func newDiscoverCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "discover URL",
		Short: "List the RDF alternates advertised by an HTML page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := lod.ValidateURL("url", args[0]); err != nil {
				return err
			}
			d, err := e.discoverer(cmd)
			if err != nil {
				return err
			}
			alts, err := d.Discover(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			e.printer.Alternates(alts)
			return nil
		},
	}
}
