package cmdutil

import (
	"github.com/cockroachdb/tblverify/verify/schemaverify"
	"github.com/spf13/cobra"
)

var columnFilter = schemaverify.DefaultFilterConfig()

func RegisterColumnFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&columnFilter.ColumnFilter,
		"column-filter",
		columnFilter.ColumnFilter,
		"POSIX regexp filter for columns to compare",
	)
}

func ColumnFilter() schemaverify.FilterConfig {
	return columnFilter
}
