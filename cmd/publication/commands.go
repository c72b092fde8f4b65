package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"bspub/internal/app"
	"bspub/internal/catalog"
	"bspub/internal/operations"
	datatable "bspub/internal/table"
)

// withApplication creates the application, runs fn and always stops it.
func withApplication(ctx context.Context, opts *rootOptions, fn func(a *app.Application) error) (err error) {
	a, err := app.NewApplication(opts.appOptions())
	if err != nil {
		return err
	}
	defer func() {
		if stopErr := a.Stop(context.WithoutCancel(ctx)); err == nil {
			err = stopErr
		}
	}()
	if err := a.Start(ctx); err != nil {
		return err
	}
	return fn(a)
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Build and write every output in the catalog",
		Long: `Load the record feeds and reference files, then build every output in the
catalog and write it to its workbook or CSV directory. The run stops at the
first failing output and leaves no partially written workbook behind.`,
		Example: `  # Run with ./bspub.yaml
  bspub run

  # Run with another config and expose metrics while it runs
  bspub run --config configs/bspub.yaml --metrics-addr :9090`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd.Context(), opts, func(a *app.Application) error {
				if err := a.Prepare(cmd.Context()); err != nil {
					return err
				}
				res, err := a.Run(cmd.Context())
				if res != nil {
					renderRun(cmd.OutOrStdout(), res)
				}
				return err
			})
		},
	}
}

func newPreviewCmd(opts *rootOptions) *cobra.Command {
	var group, output string
	var limit int
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Build one output and print it",
		Long: `Build a single output from the catalog and print the finished table
without writing any file.`,
		Example: `  # Preview the uptake table
  bspub preview --output "Table 3"

  # Preview an output of a specific group, first 20 rows
  bspub preview --group kc62_csv --output kc62_uptake --limit 20`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd.Context(), opts, func(a *app.Application) error {
				if err := a.Prepare(cmd.Context()); err != nil {
					return err
				}
				t, err := a.Preview(group, output)
				if err != nil {
					return err
				}
				renderTable(cmd.OutOrStdout(), t, limit)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "output group (default: first group with the output)")
	cmd.Flags().StringVar(&output, "output", "", "output name")
	cmd.Flags().IntVar(&limit, "limit", 0, "print at most this many rows (0 prints all)")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the output groups and outputs in the catalog",
		Example: `  bspub catalog
  bspub catalog --config configs/bspub.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd.Context(), opts, func(a *app.Application) error {
				renderCatalog(cmd.OutOrStdout(), a.Catalog)
				return nil
			})
		},
	}
}

func renderRun(w io.Writer, res *operations.RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Group", "Output", "Write type", "Rows", "File", "Time"})
	for _, o := range res.Outputs {
		t.AppendRow(table.Row{o.Group, o.Output, o.WriteType, o.Rows, filepath.Base(o.Path), o.Duration.Round(time.Millisecond)})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "%d outputs, %d files written in %s\n", len(res.Outputs), len(res.Files), res.Duration.Round(time.Millisecond))
}

func renderCatalog(w io.Writer, c *catalog.Catalog) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Group", "Collection", "Destination", "Output", "Write type", "Contents"})
	for _, item := range c.Outputs() {
		dest := item.Group.Workbook
		if item.Group.IsCSV() {
			dest = item.Group.Dir + "/"
		}
		t.AppendRow(table.Row{item.Group.Name, item.Group.Collection, dest, item.Output.Name, item.Output.WriteType, len(item.Output.Contents)})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d groups, %d outputs)\n", len(c.Groups), len(c.Outputs()))
}

func renderTable(w io.Writer, data *datatable.Table, limit int) {
	if data.Len() == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, 0, data.Width())
	for _, c := range data.Columns() {
		header = append(header, c)
	}
	t.AppendHeader(header)

	shown := data.Len()
	if limit > 0 && limit < shown {
		shown = limit
	}
	for i := 0; i < shown; i++ {
		values := data.Row(i).Values()
		row := make(table.Row, len(values))
		for j, v := range values {
			row[j] = v.String()
		}
		t.AppendRow(row)
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d of %d rows)\n", shown, data.Len())
}
