package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/overlod-admin/pkg/httpclient"
	"github.com/samvad-hq/overlod-admin/pkg/lod"
)

func newViewsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "views",
		Aliases: []string{"dataview", "dv"},
		Short:   "Manage stored SPARQL data views",
	}
	cmd.AddCommand(
		newViewsListCmd(e),
		newViewsGetCmd(e),
		newViewsQueryCmd(e),
		newViewsWriteCmd(e, "add", "Store a new data view"),
		newViewsWriteCmd(e, "update", "Replace the query of a data view"),
		newViewsDeleteCmd(e),
		newViewsHelloCmd(e),
	)
	return cmd
}

func newViewsListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List data view names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := e.client(cmd)
			if err != nil {
				return err
			}
			names, err := await(cmd.Context(), client.DataViews.List)
			if err != nil {
				return err
			}
			e.printer.Lines(names)
			return nil
		},
	}
}

func newViewsGetCmd(e *env) *cobra.Command {
	var mime string
	cmd := &cobra.Command{
		Use:   "get VIEW [NAME=VALUE...]",
		Short: "Execute a data view",
		Long: `Execute a data view and print the result. Each NAME=VALUE argument is
substituted into the stored query; the "p_" prefix is added when missing.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			viewArgs, err := parseViewArgs(args[1:])
			if err != nil {
				return err
			}
			client, err := e.client(cmd)
			if err != nil {
				return err
			}
			body, err := await(cmd.Context(), func(ctx context.Context) ([]byte, error) {
				return client.DataViews.Get(ctx, args[0], mime, viewArgs)
			})
			if err != nil {
				return err
			}
			e.printer.Raw(body)
			return nil
		},
	}
	cmd.Flags().StringVarP(&mime, "mime", "m", lod.MimeSPARQLJSON, "Result format requested from the server")
	return cmd
}

func newViewsQueryCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "query VIEW",
		Short: "Print the SPARQL query stored for a data view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := e.client(cmd)
			if err != nil {
				return err
			}
			text, err := await(cmd.Context(), func(ctx context.Context) (string, error) {
				return client.DataViews.Query(ctx, args[0])
			})
			if err != nil {
				return err
			}
			e.printer.Raw([]byte(text))
			return nil
		},
	}
}

// newViewsWriteCmd builds "add" and "update", which differ only in method.
func newViewsWriteCmd(e *env, use, short string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   use + " VIEW [QUERY]",
		Short: short,
		Long: short + `. The query is taken from the second argument, or from
--file ("-" reads standard input).`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := queryText(cmd, args[1:], file)
			if err != nil {
				return err
			}
			client, err := e.client(cmd)
			if err != nil {
				return err
			}
			write := client.DataViews.Add
			if use == "update" {
				write = client.DataViews.Update
			}
			msg, err := await(cmd.Context(), func(ctx context.Context) (string, error) {
				return write(ctx, args[0], query)
			})
			if err != nil {
				return err
			}
			e.printer.Success(msg)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the query from a file")
	return cmd
}

func newViewsDeleteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete VIEW",
		Short: "Delete a data view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := e.client(cmd)
			if err != nil {
				return err
			}
			msg, err := await(cmd.Context(), func(ctx context.Context) (string, error) {
				return client.DataViews.Delete(ctx, args[0])
			})
			if err != nil {
				return err
			}
			e.printer.Success(msg)
			return nil
		},
	}
}

func newViewsHelloCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "hello [NAME]",
		Short: "Call the server's echo endpoint",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "overlod"
			if len(args) == 1 {
				name = args[0]
			}
			client, err := e.client(cmd)
			if err != nil {
				return err
			}
			msg, err := await(cmd.Context(), func(ctx context.Context) (string, error) {
				return client.DataViews.Hello(ctx, name)
			})
			if err != nil {
				return err
			}
			e.printer.Raw([]byte(msg))
			return nil
		},
	}
}

func parseViewArgs(args []string) (httpclient.Params, error) {
	var p httpclient.Params
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid view argument %q (want NAME=VALUE)", a)
		}
		p = p.Add(k, v)
	}
	return p, nil
}

func queryText(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case len(args) > 0 && file != "":
		return "", fmt.Errorf("give the query either as an argument or with --file, not both")
	case len(args) > 0:
		return args[0], nil
	case file == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read query from stdin: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read query file: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	default:
		return "", nil
	}
}
