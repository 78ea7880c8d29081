package verify

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tblverify/table"
	"github.com/cockroachdb/tblverify/verify/inconsistency"
	"github.com/cockroachdb/tblverify/verify/rowverify"
	"github.com/cockroachdb/tblverify/verify/schemaverify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LabeledTable is a table along with the name it goes by in messages.
type LabeledTable struct {
	Label string
	Table *table.Table
}

// OrderedTables are the two tables being compared. The order only matters
// for the order of findings.
type OrderedTables [2]LabeledTable

type CompareOpt func(*compareOpts)

type compareOpts struct {
	sortKeys     []string
	columnFilter schemaverify.FilterConfig
	mem          memory.Allocator
}

// WithSortKeys overrides the automatically selected sort key.
func WithSortKeys(cols ...string) CompareOpt {
	return func(o *compareOpts) {
		o.sortKeys = cols
	}
}

func WithColumnFilter(filter schemaverify.FilterConfig) CompareOpt {
	return func(o *compareOpts) {
		o.columnFilter = filter
	}
}

func WithAllocator(mem memory.Allocator) CompareOpt {
	return func(o *compareOpts) {
		o.mem = mem
	}
}

var (
	comparisonsMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tblverify",
		Subsystem: "verify",
		Name:      "comparisons_total",
		Help:      "Number of table comparisons that have been run.",
	})
	findingsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tblverify",
		Subsystem: "verify",
		Name:      "findings_total",
		Help:      "Differences found between compared tables.",
	}, []string{"kind"})
	comparisonDurationMetric = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tblverify",
		Subsystem: "verify",
		Name:      "comparison_duration_seconds",
		Help:      "Time taken to compare two tables.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})
)

func init() {
	// Initialise each metric by default.
	for _, k := range inconsistency.Kinds() {
		findingsMetric.WithLabelValues(k.String())
	}
}

// comparison accumulates the findings of a single Compare call.
type comparison struct {
	reporter inconsistency.Reporter
	report   inconsistency.Report
}

// add reports a finding and records it.
func (c *comparison) add(f inconsistency.Finding) {
	c.reporter.Report(f)
	c.record(f)
}

// record records a finding which has already been reported.
func (c *comparison) record(f inconsistency.Finding) {
	c.report.Add(f)
	findingsMetric.WithLabelValues(f.Kind().String()).Inc()
}

// Compare determines whether the two tables hold the same rows, ignoring
// row order. Every difference found is returned in the report and reported to
// the reporter as it is discovered, along with progress narration. An error is
// only returned if a table is unusable.
func Compare(
	tables OrderedTables, reporter inconsistency.Reporter, inOpts ...CompareOpt,
) (inconsistency.Report, error) {
	opts := compareOpts{
		columnFilter: schemaverify.DefaultFilterConfig(),
		mem:          memory.DefaultAllocator,
	}
	for _, applyOpt := range inOpts {
		applyOpt(&opts)
	}
	if reporter == nil {
		reporter = inconsistency.NopReporter{}
	}

	for _, t := range tables {
		if err := t.Table.Validate(); err != nil {
			return inconsistency.Report{}, errors.Wrapf(err, "invalid table %s", t.Label)
		}
	}

	start := time.Now()
	comparisonsMetric.Inc()
	defer func() {
		comparisonDurationMetric.Observe(time.Since(start).Seconds())
	}()

	c := &comparison{reporter: reporter}
	var started inconsistency.ComparisonStarted
	for i, t := range tables {
		started.Tables[i] = inconsistency.TableSummary{
			Label:   t.Label,
			Rows:    t.Table.NumRows(),
			Columns: t.Table.NumColumns(),
		}
	}
	reporter.Report(started)

	rows := [2]int{tables[0].Table.NumRows(), tables[1].Table.NumRows()}
	if rows[0] != rows[1] {
		c.add(inconsistency.RowCountMismatch{
			Labels: [2]string{tables[0].Label, tables[1].Label},
			Rows:   rows,
		})
	}

	schema, err := schemaverify.Verify(
		[2]*table.Table{tables[0].Table, tables[1].Table},
		opts.columnFilter,
	)
	if err != nil {
		return inconsistency.Report{}, err
	}
	for i, cols := range schema.Extraneous {
		if len(cols) > 0 {
			c.add(inconsistency.ExtraneousColumns{Label: tables[i].Label, Columns: cols})
		}
	}

	if len(schema.Common) == 0 || rows[0] == 0 || rows[1] == 0 {
		return c.report, nil
	}

	keys, ok := c.sortKeys(schema, opts.sortKeys)
	if !ok {
		return c.report, nil
	}
	reporter.Report(inconsistency.SortKeySelected{Columns: keys})

	var views [2]rowverify.SortedView
	for i, t := range tables {
		views[i], err = rowverify.Sort(t.Table, keys, opts.mem)
		if err != nil {
			c.add(inconsistency.ComparisonError{
				Err: errors.Wrapf(err, "error sorting %s", t.Label),
			})
			return c.report, nil
		}
	}

	reporter.Report(inconsistency.ColumnsComparisonStarted{NumColumns: len(schema.Common)})
	for _, f := range rowverify.VerifyColumns(schema.Common, views, opts.mem, reporter) {
		c.record(f)
	}
	return c.report, nil
}

// sortKeys returns the columns to order both tables by, or false if rows
// cannot be compared.
func (c *comparison) sortKeys(schema schemaverify.Result, explicit []string) ([]string, bool) {
	if len(explicit) == 0 {
		key, ok := rowverify.SelectSortKey(schema.Common)
		if !ok {
			c.add(inconsistency.UnsortableSchema{})
			return nil, false
		}
		return []string{key}, true
	}

	common := make(map[string]table.Column, len(schema.Common))
	for _, cols := range schema.Common {
		common[cols[0].Name] = cols[0]
	}
	for _, key := range explicit {
		col, ok := common[key]
		if !ok {
			c.add(inconsistency.ComparisonError{
				Err: errors.Newf("sort key %q is not a common column", key),
			})
			return nil, false
		}
		if col.Kind != table.KindScalar {
			c.add(inconsistency.ComparisonError{
				Err: errors.Newf("sort key %q is a %s column", key, col.Kind),
			})
			return nil, false
		}
	}
	return explicit, true
}
