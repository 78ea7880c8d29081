package rowverify

import (
	"github.com/cockroachdb/tblverify/verify/inconsistency"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ColumnEventListener interface {
	OnMatch(column string)
	OnMismatch(f inconsistency.MismatchingColumn)
	OnError(f inconsistency.ComparisonError)
}

var (
	columnStatusMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tblverify",
		Subsystem: "verify",
		Name:      "columns_compared_total",
		Help:      "Status of columns that have been compared.",
	}, []string{"result"})
)

func init() {
	// Initialise each metric by default.
	for _, r := range []inconsistency.ColumnResult{
		inconsistency.ColumnOK,
		inconsistency.ColumnMismatch,
		inconsistency.ColumnError,
	} {
		columnStatusMetric.WithLabelValues(r.String())
	}
}

// defaultColumnEventListener narrates each column outcome to the reporter and
// collects the findings.
type defaultColumnEventListener struct {
	reporter inconsistency.Reporter
	findings []inconsistency.Finding
}

func (n *defaultColumnEventListener) verified(column string, r inconsistency.ColumnResult) {
	n.reporter.Report(inconsistency.ColumnVerified{Column: column, Result: r})
	columnStatusMetric.WithLabelValues(r.String()).Inc()
}

func (n *defaultColumnEventListener) OnMatch(column string) {
	n.verified(column, inconsistency.ColumnOK)
}

func (n *defaultColumnEventListener) OnMismatch(f inconsistency.MismatchingColumn) {
	n.verified(f.Column, inconsistency.ColumnMismatch)
	n.reporter.Report(f)
	n.findings = append(n.findings, f)
}

func (n *defaultColumnEventListener) OnError(f inconsistency.ComparisonError) {
	n.verified(f.Column, inconsistency.ColumnError)
	n.reporter.Report(f)
	n.findings = append(n.findings, f)
}
