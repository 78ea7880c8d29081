// Package table holds the in-memory columnar table that gets compared.
package table

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/cockroachdb/errors"
)

// Kind is the closed set of column shapes the comparator dispatches on.
type Kind int

const (
	KindScalar Kind = iota
	KindStruct
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindStruct:
		return "struct"
	case KindList:
		return "list"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsNested returns whether values of this kind are composed of sub-values.
func (k Kind) IsNested() bool {
	return k != KindScalar
}

// KindOf classifies an arrow data type.
func KindOf(dt arrow.DataType) Kind {
	switch dt.ID() {
	case arrow.STRUCT, arrow.SPARSE_UNION, arrow.DENSE_UNION:
		return KindStruct
	case arrow.LIST, arrow.LARGE_LIST, arrow.FIXED_SIZE_LIST,
		arrow.LIST_VIEW, arrow.LARGE_LIST_VIEW, arrow.MAP:
		return KindList
	case arrow.EXTENSION:
		return KindOf(dt.(arrow.ExtensionType).StorageType())
	}
	return KindScalar
}

// Column is a named, typed sequence of values.
type Column struct {
	Name string
	Type arrow.DataType
	Kind Kind
	Data *arrow.Chunked
}

// NewColumn wraps the given chunked data as a column, deriving its kind.
func NewColumn(name string, data *arrow.Chunked) Column {
	return Column{
		Name: name,
		Type: data.DataType(),
		Kind: KindOf(data.DataType()),
		Data: data,
	}
}

// Len returns the number of values in the column.
func (c Column) Len() int {
	return c.Data.Len()
}

// Table is an ordered list of columns sharing a row count. A Table is never
// mutated after construction.
type Table struct {
	numRows int
	columns []Column
	byName  map[string]int
}

// New creates a table, validating that column names are unique and that every
// column holds exactly numRows values.
func New(numRows int, cols ...Column) (*Table, error) {
	t := &Table{
		numRows: numRows,
		columns: cols,
		byName:  make(map[string]int, len(cols)),
	}
	for i, col := range cols {
		if _, ok := t.byName[col.Name]; ok {
			return nil, errors.Newf("duplicate column %q", col.Name)
		}
		t.byName[col.Name] = i
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// FromArrow converts an arrow table. The arrow table may be released by the
// caller afterwards.
func FromArrow(tbl arrow.Table) (*Table, error) {
	cols := make([]Column, tbl.NumCols())
	for i := range cols {
		c := tbl.Column(i)
		c.Data().Retain()
		cols[i] = NewColumn(c.Name(), c.Data())
	}
	t, err := New(int(tbl.NumRows()), cols...)
	if err != nil {
		for _, c := range cols {
			c.Data.Release()
		}
		return nil, err
	}
	return t, nil
}

// Validate checks the table upholds its contract.
func (t *Table) Validate() error {
	if t == nil {
		return errors.AssertionFailedf("nil table")
	}
	if t.numRows < 0 {
		return errors.AssertionFailedf("negative row count %d", t.numRows)
	}
	for _, col := range t.columns {
		if col.Data == nil {
			return errors.AssertionFailedf("column %q has no data", col.Name)
		}
		if l := col.Len(); l != t.numRows {
			return errors.AssertionFailedf(
				"column %q has %d values, table has %d rows",
				col.Name,
				l,
				t.numRows,
			)
		}
	}
	return nil
}

func (t *Table) NumRows() int {
	return t.numRows
}

func (t *Table) NumColumns() int {
	return len(t.columns)
}

// Columns returns the columns in table order. The slice must not be modified.
func (t *Table) Columns() []Column {
	return t.columns
}

func (t *Table) ColumnNames() []string {
	ret := make([]string, len(t.columns))
	for i, col := range t.columns {
		ret[i] = col.Name
	}
	return ret
}

func (t *Table) Column(name string) (Column, bool) {
	idx, ok := t.byName[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[idx], true
}

// Release releases the arrow memory held by the table.
func (t *Table) Release() {
	for _, col := range t.columns {
		col.Data.Release()
	}
}
