package schema

import (
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/tblverify/cmd/internal/cmdutil"
	"github.com/cockroachdb/tblverify/table"
	"github.com/cockroachdb/tblverify/tableload"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <path>",
		Short: "Print the columns of a table.",
		Long:  `Print the name, type and kind of each column of a table, as seen when comparing.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			logger, err := cmdutil.Logger()
			if err != nil {
				return err
			}
			tbl, err := tableload.Load(context.Background(), args[0], cmdutil.LoadOpts(logger, memory.DefaultAllocator)...)
			if err != nil {
				return err
			}
			defer tbl.Release()
			writeSchema(cmd.OutOrStdout(), tbl)
			return nil
		},
	}
}

func writeSchema(w io.Writer, tbl *table.Table) {
	t := prettytable.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(prettytable.StyleLight)
	t.AppendHeader(prettytable.Row{"#", "column", "type", "kind"})
	for i, col := range tbl.Columns() {
		t.AppendRow(prettytable.Row{i + 1, col.Name, col.Type.String(), col.Kind.String()})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", tbl.NumRows())
}
