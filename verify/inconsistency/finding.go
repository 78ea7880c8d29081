package inconsistency

import (
	"fmt"
	"strings"
)

// Kind is the category of a Finding.
type Kind int

const (
	KindRowCount Kind = iota
	KindColumns
	KindSorting
	KindColumnValues
	KindComparisonError

	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindRowCount:
		return "row_count"
	case KindColumns:
		return "columns"
	case KindSorting:
		return "unsortable_schema"
	case KindColumnValues:
		return "column_values"
	case KindComparisonError:
		return "comparison_error"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Kinds returns every kind in report order.
func Kinds() []Kind {
	ret := make([]Kind, numKinds)
	for i := range ret {
		ret[i] = Kind(i)
	}
	return ret
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Finding is a single discrepancy discovered whilst comparing two tables.
type Finding interface {
	ReportableObject
	Kind() Kind
	Message() string
}

// RowCountMismatch represents the tables having a different number of rows.
type RowCountMismatch struct {
	Labels [2]string
	Rows   [2]int
}

func (RowCountMismatch) Kind() Kind { return KindRowCount }

func (f RowCountMismatch) Message() string {
	return fmt.Sprintf(
		"Row count mismatch: %s has %d rows, %s has %d rows",
		f.Labels[0],
		f.Rows[0],
		f.Labels[1],
		f.Rows[1],
	)
}

// ExtraneousColumns represents columns only present on one side.
type ExtraneousColumns struct {
	Label   string
	Columns []string
}

func (ExtraneousColumns) Kind() Kind { return KindColumns }

func (f ExtraneousColumns) Message() string {
	quoted := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		quoted[i] = fmt.Sprintf("'%s'", c)
	}
	return fmt.Sprintf("%s has additional columns: [%s]", f.Label, strings.Join(quoted, ", "))
}

// UnsortableSchema represents there being no scalar common column to order
// rows by.
type UnsortableSchema struct{}

func (UnsortableSchema) Kind() Kind { return KindSorting }

func (UnsortableSchema) Message() string {
	return "No sortable column found in common columns - cannot compare row-by-row"
}

// MismatchingColumn represents a common column whose values differ once both
// tables are in canonical order.
type MismatchingColumn struct {
	Column string
	// FirstDiffRow is the index of the first differing row in canonical order.
	// Only meaningful if HasFirstDiffRow is set.
	FirstDiffRow    int
	HasFirstDiffRow bool
	// Info optionally describes why the column differs.
	Info string
}

func (MismatchingColumn) Kind() Kind { return KindColumnValues }

func (f MismatchingColumn) Message() string {
	msg := fmt.Sprintf("Column '%s' has differences", f.Column)
	var details []string
	if f.HasFirstDiffRow {
		details = append(details, fmt.Sprintf("first at row %d", f.FirstDiffRow))
	}
	if f.Info != "" {
		details = append(details, f.Info)
	}
	if len(details) > 0 {
		msg += " (" + strings.Join(details, "; ") + ")"
	}
	return msg
}

// ComparisonError represents an internal failure whilst comparing. If Column
// is empty, the failure happened whilst ordering the tables.
type ComparisonError struct {
	Column string
	Err    error
}

func (ComparisonError) Kind() Kind { return KindComparisonError }

func (f ComparisonError) Message() string {
	if f.Column == "" {
		return fmt.Sprintf("Error during sorting/comparison: %v", f.Err)
	}
	return fmt.Sprintf("Error comparing column '%s': %v", f.Column, f.Err)
}
