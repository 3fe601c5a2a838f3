package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/overlod-admin/pkg/discovery"
	"github.com/samvad-hq/overlod-admin/pkg/lod"
)

func newEDSCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "eds",
		Aliases: []string{"sources"},
		Short:   "Manage external data sources",
	}
	cmd.AddCommand(
		newEDSListCmd(e),
		newEDSAddCmd(e),
		newEDSUpdateCmd(e),
		newEDSDeleteCmd(e),
		newEDSCheckCmd(e),
	)
	return cmd
}

func newEDSListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := e.client(cmd)
			if err != nil {
				return err
			}
			sources, err := await(cmd.Context(), client.EDS.List)
			if err != nil {
				return err
			}
			e.printer.Sources(sources)
			return nil
		},
	}
}

func newEDSAddCmd(e *env) *cobra.Command {
	var (
		req      lod.AddRequest
		discover string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a source and import it into its graph",
		Long: `Register a source and import it into the named graph given by --context.
With --discover PAGE the source URL and mime type are taken from the first
RDF alternate link found on that HTML page.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if discover != "" {
				d, err := e.discoverer(cmd)
				if err != nil {
					return err
				}
				alt, err := firstAlternate(cmd.Context(), d, discover)
				if err != nil {
					return err
				}
				req.URL = alt.URL
				if !cmd.Flags().Changed("mime") {
					req.MimeType = alt.Type
				}
			}
			if err := req.Validate(); err != nil {
				return err
			}
			client, err := e.client(cmd)
			if err != nil {
				return err
			}
			msg, err := await(cmd.Context(), func(ctx context.Context) (string, error) {
				return client.EDS.Add(ctx, req)
			})
			if err != nil {
				return err
			}
			e.printer.Success(msg)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.EDSType, "type", lod.EDSTypeWebRDFFile, "Source type (WebRDFFile or LocalRDFFile)")
	f.StringVar(&req.URL, "url", "", "Location of the RDF document")
	f.StringVar(&req.MimeType, "mime", "", "Mime type of the RDF document")
	f.StringVar(&req.Context, "context", "", "Named graph URI to import into")
	f.StringVar(&discover, "discover", "", "HTML page to discover the RDF source from")
	return cmd
}

func firstAlternate(ctx context.Context, d *discovery.Discoverer, page string) (discovery.Alternate, error) {
	if err := lod.ValidateURL("discover", page); err != nil {
		return discovery.Alternate{}, err
	}
	alts, err := d.Discover(ctx, page)
	if err != nil {
		return discovery.Alternate{}, err
	}
	if len(alts) == 0 {
		return discovery.Alternate{}, fmt.Errorf("no rdf alternate link found on %s", page)
	}
	return alts[0], nil
}

func newEDSUpdateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "update CONTEXT",
		Short: "Re-import the source of a graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := e.client(cmd)
			if err != nil {
				return err
			}
			msg, err := await(cmd.Context(), func(ctx context.Context) (string, error) {
				return client.EDS.Update(ctx, args[0])
			})
			if err != nil {
				return err
			}
			e.printer.Success(msg)
			return nil
		},
	}
}

func newEDSDeleteCmd(e *env) *cobra.Command {
	var deleteGraph bool
	cmd := &cobra.Command{
		Use:   "delete CONTEXT",
		Short: "Remove the source of a graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := e.client(cmd)
			if err != nil {
				return err
			}
			msg, err := await(cmd.Context(), func(ctx context.Context) (string, error) {
				return client.EDS.Delete(ctx, args[0], deleteGraph)
			})
			if err != nil {
				return err
			}
			e.printer.Success(msg)
			return nil
		},
	}
	cmd.Flags().BoolVar(&deleteGraph, "delete-graph", false, "Also drop the imported graph")
	return cmd
}

func newEDSCheckCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Ask the server to probe every source for updates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := e.client(cmd)
			if err != nil {
				return err
			}
			body, err := await(cmd.Context(), client.EDS.CheckUpdates)
			if err != nil {
				return err
			}
			e.printer.Raw(body)
			return nil
		},
	}
}
