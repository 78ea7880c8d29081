package testutils

import (
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/tblverify/table"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

// ColumnSpec describes a test column. Each chunk is a JSON array of values.
type ColumnSpec struct {
	Name   string
	Type   arrow.DataType
	Chunks []string
}

func Col(name string, dt arrow.DataType, chunks ...string) ColumnSpec {
	return ColumnSpec{Name: name, Type: dt, Chunks: chunks}
}

// MakeChunked builds a chunked array out of JSON encoded chunks.
func MakeChunked(t *testing.T, dt arrow.DataType, chunks ...string) *arrow.Chunked {
	arrs := make([]arrow.Array, len(chunks))
	for i, c := range chunks {
		arr, _, err := array.FromJSON(memory.DefaultAllocator, dt, strings.NewReader(c))
		require.NoError(t, err)
		arrs[i] = arr
	}
	ret := arrow.NewChunked(dt, arrs)
	for _, arr := range arrs {
		arr.Release()
	}
	return ret
}

// MakeTable builds a table whose row count is the length of the first column.
func MakeTable(t *testing.T, cols ...ColumnSpec) *table.Table {
	tCols := make([]table.Column, len(cols))
	for i, c := range cols {
		tCols[i] = table.NewColumn(c.Name, MakeChunked(t, c.Type, c.Chunks...))
	}
	numRows := 0
	if len(tCols) > 0 {
		numRows = tCols[0].Len()
	}
	tbl, err := table.New(numRows, tCols...)
	require.NoError(t, err)
	return tbl
}

// JSON marshals v for use as a chunk.
func JSON(t *testing.T, v any) string {
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
