package inconsistency

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// ReportableObject is anything emitted to a Reporter: findings as well as
// progress narration.
type ReportableObject interface{}

type Reporter interface {
	Report(obj ReportableObject)
	Close()
}

type CombinedReporter struct {
	Reporters []Reporter
}

func (c CombinedReporter) Report(obj ReportableObject) {
	for _, r := range c.Reporters {
		r.Report(obj)
	}
}

func (c CombinedReporter) Close() {
	for _, r := range c.Reporters {
		r.Close()
	}
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) Report(ReportableObject) {}
func (NopReporter) Close()                  {}

type StatusReport struct {
	Info string
}

// TableSummary describes one side of a comparison.
type TableSummary struct {
	Label   string
	Rows    int
	Columns int
}

// ComparisonStarted is emitted before any checks run.
type ComparisonStarted struct {
	Tables [2]TableSummary
}

// SortKeySelected is emitted once the canonical order has been decided.
type SortKeySelected struct {
	Columns []string
}

// ColumnsComparisonStarted is emitted before common columns are compared.
type ColumnsComparisonStarted struct {
	NumColumns int
}

type ColumnResult int

const (
	ColumnOK ColumnResult = iota
	ColumnMismatch
	ColumnError
)

func (r ColumnResult) String() string {
	switch r {
	case ColumnOK:
		return "OK"
	case ColumnMismatch:
		return "MISMATCH"
	case ColumnError:
		return "ERROR"
	}
	return fmt.Sprintf("ColumnResult(%d)", int(r))
}

// ColumnVerified is emitted after each common column is compared.
type ColumnVerified struct {
	Column string
	Result ColumnResult
}

const ruleWidth = 70

func rule() string {
	return strings.Repeat("=", ruleWidth)
}

// TextReporter writes human readable progress narration. Findings are not
// written; they belong in the final report.
type TextReporter struct {
	W io.Writer
}

func (r TextReporter) Report(obj ReportableObject) {
	switch obj := obj.(type) {
	case ComparisonStarted:
		r.printf("\n%s\nCOMPARISON SUMMARY\n%s\n", rule(), rule())
		for _, s := range obj.Tables {
			r.printf("%s: %d rows, %d columns\n", s.Label, s.Rows, s.Columns)
		}
	case SortKeySelected:
		r.printf("\nSorting by column: %s\n", strings.Join(obj.Columns, ", "))
	case ColumnsComparisonStarted:
		r.printf("\nComparing %d common columns...\n", obj.NumColumns)
	case ColumnVerified:
		r.printf("  Checking %s... %s\n", obj.Column, obj.Result)
	case StatusReport:
		r.printf("%s\n", obj.Info)
	}
}

func (r TextReporter) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(r.W, format, args...)
}

func (r TextReporter) Close() {
}

// LogReporter reports to `zerolog`.
type LogReporter struct {
	zerolog.Logger
}

func (l LogReporter) Report(obj ReportableObject) {
	switch obj := obj.(type) {
	case ComparisonStarted:
		for _, s := range obj.Tables {
			l.Debug().
				Str("label", s.Label).
				Int("rows", s.Rows).
				Int("columns", s.Columns).
				Msgf("comparing table")
		}
	case SortKeySelected:
		l.Debug().Strs("sort_key", obj.Columns).Msgf("sort key selected")
	case ColumnsComparisonStarted:
		l.Debug().Int("num_columns", obj.NumColumns).Msgf("comparing common columns")
	case ColumnVerified:
		l.Debug().
			Str("column", obj.Column).
			Str("result", obj.Result.String()).
			Msgf("column verified")
	case StatusReport:
		l.Info().Msg(obj.Info)
	case ComparisonError:
		l.Warn().
			Str("kind", obj.Kind().String()).
			Str("column", obj.Column).
			Err(obj.Err).
			Msgf("error during comparison")
	case MismatchingColumn:
		evt := l.Warn().
			Str("kind", obj.Kind().String()).
			Str("column", obj.Column)
		if obj.HasFirstDiffRow {
			evt = evt.Int("first_diff_row", obj.FirstDiffRow)
		}
		evt.Msgf("mismatching column values")
	case Finding:
		l.Warn().
			Str("kind", obj.Kind().String()).
			Str("info", obj.Message()).
			Msgf("difference detected")
	default:
		l.Error().
			Str("type", fmt.Sprintf("%T", obj)).
			Msgf("unknown object type")
	}
}

func (l LogReporter) Close() {
}
