// Package rowverify compares the values of common columns once both tables
// have been put into the same canonical row order.
package rowverify

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tblverify/table"
	"github.com/cockroachdb/tblverify/verify/inconsistency"
)

// rowEqualFn compares row i of one column against row j of the other.
type rowEqualFn func(i, j int) (bool, error)

// columnComparer decides equality between the values of two columns of the
// same kind.
type columnComparer interface {
	// prepare returns the row equality for a and b. If the columns can never
	// be equal, a description of why is returned instead.
	prepare(a, b arrow.Array) (eq rowEqualFn, incompatible string, err error)
}

type scalarComparer struct{}

func (scalarComparer) prepare(a, b arrow.Array) (rowEqualFn, string, error) {
	if !arrow.TypeEqual(a.DataType(), b.DataType()) {
		return nil, fmt.Sprintf("type %s vs %s", a.DataType(), b.DataType()), nil
	}
	eq, err := newScalarEquality(a, b)
	if err != nil {
		return nil, "", err
	}
	return func(i, j int) (bool, error) {
		return eq(i, j), nil
	}, "", nil
}

// nestedComparer compares the canonical forms of values, so any two columns
// holding the same logical values are equal no matter their physical types
// or layout.
type nestedComparer struct{}

func (nestedComparer) prepare(a, b arrow.Array) (rowEqualFn, string, error) {
	return func(i, j int) (bool, error) {
		x, err := canonicalize(a, i)
		if err != nil {
			return false, err
		}
		y, err := canonicalize(b, j)
		if err != nil {
			return false, err
		}
		return canonicalEqual(x, y), nil
	}, "", nil
}

func comparerFor(k table.Kind) columnComparer {
	if k.IsNested() {
		return nestedComparer{}
	}
	return scalarComparer{}
}

// VerifyColumns compares each pair of common columns positionally across the
// two sorted views, in the order given. Outcomes and findings are reported as
// they happen; the findings are also returned in discovery order.
func VerifyColumns(
	common [][2]table.Column,
	views [2]SortedView,
	mem memory.Allocator,
	reporter inconsistency.Reporter,
) []inconsistency.Finding {
	listener := &defaultColumnEventListener{reporter: reporter}
	verifyColumns(common, views, mem, listener)
	return listener.findings
}

func verifyColumns(
	common [][2]table.Column,
	views [2]SortedView,
	mem memory.Allocator,
	listener ColumnEventListener,
) {
	for _, cols := range common {
		mismatch, err := verifyColumn(cols, views, mem)
		switch {
		case err != nil:
			listener.OnError(inconsistency.ComparisonError{Column: cols[0].Name, Err: err})
		case mismatch != nil:
			listener.OnMismatch(*mismatch)
		default:
			listener.OnMatch(cols[0].Name)
		}
	}
}

func verifyColumn(
	cols [2]table.Column, views [2]SortedView, mem memory.Allocator,
) (*inconsistency.MismatchingColumn, error) {
	name := cols[0].Name
	if cols[0].Kind != cols[1].Kind {
		return &inconsistency.MismatchingColumn{
			Column: name,
			Info:   fmt.Sprintf("kind %s vs %s", cols[0].Kind, cols[1].Kind),
		}, nil
	}

	var arrs [2]arrow.Array
	for i, col := range cols {
		arr, err := concatenate(col.Data, mem)
		if err != nil {
			return nil, err
		}
		defer arr.Release()
		if arr.Len() != views[i].Len() {
			return nil, errors.AssertionFailedf(
				"column %q has %d values, expected %d",
				name,
				arr.Len(),
				views[i].Len(),
			)
		}
		arrs[i] = arr
	}

	eq, incompatible, err := comparerFor(cols[0].Kind).prepare(arrs[0], arrs[1])
	if err != nil {
		return nil, err
	}
	if incompatible != "" {
		return &inconsistency.MismatchingColumn{Column: name, Info: incompatible}, nil
	}

	n, m := views[0].Len(), views[1].Len()
	for i := 0; i < min(n, m); i++ {
		ok, err := eq(views[0].Row(i), views[1].Row(i))
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		if !ok {
			return &inconsistency.MismatchingColumn{
				Column:          name,
				FirstDiffRow:    i,
				HasFirstDiffRow: true,
			}, nil
		}
	}
	if n != m {
		return &inconsistency.MismatchingColumn{
			Column: name,
			Info:   fmt.Sprintf("length %d vs %d", n, m),
		}, nil
	}
	return nil, nil
}
