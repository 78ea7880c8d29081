// Package schemaverify is responsible for verifying two tables have the same
// set of columns.
package schemaverify

import (
	"sort"
	"strings"

	"github.com/cockroachdb/tblverify/table"
)

// Result is the outcome of comparing the column sets of two tables.
type Result struct {
	// Common holds the columns present in both tables, sorted by name.
	Common [][2]table.Column
	// Extraneous holds, for each side, the columns absent from the other side,
	// sorted by name.
	Extraneous [2][]string
}

// CommonNames returns the sorted names of the common columns.
func (r Result) CommonNames() []string {
	ret := make([]string, len(r.Common))
	for i, c := range r.Common {
		ret[i] = c[0].Name
	}
	return ret
}

type columnIterator struct {
	columns []table.Column
	currIdx int
}

func (c *columnIterator) done() bool {
	return c.currIdx >= len(c.columns)
}

func (c *columnIterator) next() {
	c.currIdx++
}

func (c *columnIterator) curr() table.Column {
	return c.columns[c.currIdx]
}

func sortedColumns(t *table.Table, filter *compiledFilter) []table.Column {
	cols := make([]table.Column, 0, t.NumColumns())
	for _, col := range t.Columns() {
		if filter.matches(col.Name) {
			cols = append(cols, col)
		}
	}
	sort.Slice(cols, func(i, j int) bool {
		return cols[i].Name < cols[j].Name
	})
	return cols
}

// Verify computes the common and extraneous columns of two tables.
func Verify(tables [2]*table.Table, cfg FilterConfig) (Result, error) {
	filter, err := cfg.compile()
	if err != nil {
		return Result{}, err
	}
	var iterators [2]columnIterator
	for i, t := range tables {
		iterators[i] = columnIterator{columns: sortedColumns(t, filter)}
	}
	return compare(iterators), nil
}

// compare compares two lists of columns.
// It assumes columns are in sorted order in each iterator.
func compare(iterators [2]columnIterator) Result {
	ret := Result{}
	left := &iterators[0]
	right := &iterators[1]
	for !left.done() {
		// Once the right side is exhausted, everything left on the left side
		// is extraneous to it.
		compareVal := 1
		if !right.done() {
			compareVal = strings.Compare(right.curr().Name, left.curr().Name)
		}
		switch compareVal {
		case -1:
			ret.Extraneous[1] = append(ret.Extraneous[1], right.curr().Name)
			right.next()
		case 0:
			ret.Common = append(ret.Common, [2]table.Column{left.curr(), right.curr()})
			left.next()
			right.next()
		case 1:
			ret.Extraneous[0] = append(ret.Extraneous[0], left.curr().Name)
			left.next()
		}
	}

	for !right.done() {
		ret.Extraneous[1] = append(ret.Extraneous[1], right.curr().Name)
		right.next()
	}
	return ret
}
