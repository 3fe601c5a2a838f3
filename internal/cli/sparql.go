package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/overlod-admin/pkg/lod"
)

func newSPARQLCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sparql",
		Short: "Query the server's SPARQL endpoint",
	}
	cmd.AddCommand(newSPARQLSelectCmd(e))
	return cmd
}

func newSPARQLSelectCmd(e *env) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "select [QUERY]",
		Short: "Run a SELECT query and print its bindings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := queryText(cmd, args, file)
			if err != nil {
				return err
			}
			client, err := e.client(cmd)
			if err != nil {
				return err
			}
			rows, err := await(cmd.Context(), func(ctx context.Context) ([]lod.Binding, error) {
				return client.SPARQL.Select(ctx, query)
			})
			if err != nil {
				return err
			}
			e.printer.Bindings(rows)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the query from a file (\"-\" for stdin)")
	return cmd
}
