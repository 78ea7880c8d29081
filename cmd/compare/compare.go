package compare

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tblverify/cmd/internal/cmdutil"
	"github.com/cockroachdb/tblverify/tableload"
	"github.com/cockroachdb/tblverify/verify"
	"github.com/cockroachdb/tblverify/verify/inconsistency"
	"github.com/spf13/cobra"
)

// ErrTablesDiffer is returned with --fail-on-mismatch when the tables differ.
var ErrTablesDiffer = errors.New("tables differ")

const (
	formatText = "text"
	formatJSON = "json"
)

func Command() *cobra.Command {
	var (
		compareFormat         string
		compareGroupFindings  bool
		compareSortKeys       []string
		compareFailOnMismatch bool
	)

	cmd := &cobra.Command{
		Use:   "tblverify <path1> <path2>",
		Short: "Compare two tables, ignoring row order.",
		Long: `Compare two tables held in parquet files, arrow files or dataset directories,
reporting any differences in row count, columns or column values. Row order is
ignored.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if compareFormat != formatText && compareFormat != formatJSON {
				return errors.Newf("unknown format %q, expected %s or %s", compareFormat, formatText, formatJSON)
			}
			cmd.SilenceUsage = true

			logger, err := cmdutil.Logger()
			if err != nil {
				return err
			}
			cmdutil.RunMetricsServer(logger)

			out := cmd.OutOrStdout()
			narration := out
			if compareFormat == formatJSON {
				narration = cmd.ErrOrStderr()
			}
			reporter := inconsistency.CombinedReporter{}
			reporter.Reporters = append(
				reporter.Reporters,
				inconsistency.TextReporter{W: narration},
				inconsistency.LogReporter{Logger: logger},
			)
			defer reporter.Close()

			ctx := context.Background()
			mem := memory.NewGoAllocator()
			reporter.Report(inconsistency.StatusReport{Info: fmt.Sprintf("Loading first table from: %s", args[0])})
			reporter.Report(inconsistency.StatusReport{Info: fmt.Sprintf("Loading second table from: %s", args[1])})
			tables, err := tableload.LoadPair(ctx, [2]string{args[0], args[1]}, cmdutil.LoadOpts(logger, mem)...)
			if err != nil {
				return err
			}
			defer func() {
				for _, t := range tables {
					t.Release()
				}
			}()

			report, err := verify.Compare(
				verify.OrderedTables{
					{Label: args[0], Table: tables[0]},
					{Label: args[1], Table: tables[1]},
				},
				reporter,
				verify.WithSortKeys(compareSortKeys...),
				verify.WithColumnFilter(cmdutil.ColumnFilter()),
				verify.WithAllocator(mem),
			)
			if err != nil {
				return errors.Wrapf(err, "error comparing")
			}

			switch compareFormat {
			case formatJSON:
				err = inconsistency.WriteJSON(out, report, compareGroupFindings)
			default:
				err = inconsistency.WriteText(out, report, compareGroupFindings)
			}
			if err != nil {
				return errors.Wrapf(err, "error writing report")
			}

			if err := cmdutil.WriteMetricsTextfile(logger); err != nil {
				return err
			}
			if compareFailOnMismatch && !report.Equal() {
				return ErrTablesDiffer
			}
			return nil
		},
	}

	cmd.Flags().StringVar(
		&compareFormat,
		"format",
		formatText,
		"format of the final report: text or json",
	)
	cmd.Flags().BoolVar(
		&compareGroupFindings,
		"group-findings",
		false,
		"group the final report by kind of difference instead of discovery order",
	)
	cmd.Flags().StringSliceVar(
		&compareSortKeys,
		"sort-key",
		nil,
		"comma separated columns to sort both tables by (defaults to the first sortable common column)",
	)
	cmd.Flags().BoolVar(
		&compareFailOnMismatch,
		"fail-on-mismatch",
		false,
		"exit with a non-zero status if the tables differ",
	)
	cmdutil.RegisterLoggerFlags(cmd)
	cmdutil.RegisterMetricsFlags(cmd)
	cmdutil.RegisterLoaderFlags(cmd)
	cmdutil.RegisterColumnFilterFlags(cmd)
	return cmd
}
