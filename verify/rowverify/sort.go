package rowverify

import (
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tblverify/table"
)

// SelectSortKey returns the first common column, in name order, holding
// scalar values in the first table. common must be sorted by name.
func SelectSortKey(common [][2]table.Column) (string, bool) {
	for _, c := range common {
		if c[0].Kind == table.KindScalar {
			return c[0].Name, true
		}
	}
	return "", false
}

// SortedView is a read-only ordering of the rows of a table.
type SortedView struct {
	order []int
}

// Len returns the number of rows in the view.
func (v SortedView) Len() int {
	return len(v.order)
}

// Row returns the table row at position i of the view.
func (v SortedView) Row(i int) int {
	return v.order[i]
}

// IdentityView returns a view of n rows in table order.
func IdentityView(n int) SortedView {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return SortedView{order: order}
}

// concatenate returns the column data as a single array. The caller must
// release the result.
func concatenate(data *arrow.Chunked, mem memory.Allocator) (arrow.Array, error) {
	chunks := data.Chunks()
	switch len(chunks) {
	case 0:
		return array.MakeArrayOfNull(mem, data.DataType(), 0), nil
	case 1:
		chunks[0].Retain()
		return chunks[0], nil
	}
	arr, err := array.Concatenate(chunks, mem)
	if err != nil {
		return nil, errors.Wrapf(err, "error concatenating %d chunks", len(chunks))
	}
	return arr, nil
}

// Sort orders the rows of the table by the given key columns, ascending and
// stable, with nulls last. The table itself is untouched.
func Sort(tbl *table.Table, keys []string, mem memory.Allocator) (SortedView, error) {
	if len(keys) == 0 {
		return SortedView{}, errors.AssertionFailedf("no sort key given")
	}
	comparators := make([]compareFn, 0, len(keys))
	for _, key := range keys {
		col, ok := tbl.Column(key)
		if !ok {
			return SortedView{}, errors.Newf("sort key column %q not found", key)
		}
		if col.Kind != table.KindScalar {
			return SortedView{}, errors.Newf("cannot sort by %s column %q", col.Kind, key)
		}
		arr, err := concatenate(col.Data, mem)
		if err != nil {
			return SortedView{}, err
		}
		defer arr.Release()
		c, err := newOrdering(arr)
		if err != nil {
			return SortedView{}, errors.Wrapf(err, "cannot sort by column %q", key)
		}
		comparators = append(comparators, c)
	}

	view := IdentityView(tbl.NumRows())
	sort.SliceStable(view.order, func(i, j int) bool {
		for _, c := range comparators {
			if res := c(view.order[i], view.order[j]); res != 0 {
				return res < 0
			}
		}
		return false
	})
	return view, nil
}
