package tableload

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/cockroachdb/tblverify/table"
)

func readParquet(
	ctx context.Context, path string, r parquet.ReaderAtSeeker, mem memory.Allocator,
) (*table.Table, error) {
	tbl, err := pqarrow.ReadTable(
		ctx,
		r,
		parquet.NewReaderProperties(mem),
		pqarrow.ArrowReadProperties{},
		mem,
	)
	if err != nil {
		return nil, newLoadError(path, err)
	}
	defer tbl.Release()
	ret, err := table.FromArrow(tbl)
	if err != nil {
		return nil, newLoadError(path, err)
	}
	return ret, nil
}
