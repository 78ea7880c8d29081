package tableload

import (
	"bytes"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tblverify/table"
)

// readRecords decodes an arrow IPC file, falling back to the IPC stream
// format. The caller must release the returned records.
func readRecords(b []byte, mem memory.Allocator) (*arrow.Schema, []arrow.Record, error) {
	if fr, err := ipc.NewFileReader(bytes.NewReader(b), ipc.WithAllocator(mem)); err == nil {
		defer func() { _ = fr.Close() }()
		recs := make([]arrow.Record, 0, fr.NumRecords())
		for i := 0; i < fr.NumRecords(); i++ {
			rec, err := fr.RecordAt(i)
			if err != nil {
				releaseRecords(recs)
				return nil, nil, errors.Wrapf(err, "error reading record batch %d", i)
			}
			recs = append(recs, rec)
		}
		return fr.Schema(), recs, nil
	}

	sr, err := ipc.NewReader(bytes.NewReader(b), ipc.WithAllocator(mem))
	if err != nil {
		return nil, nil, errors.Wrap(err, "not an arrow file or stream")
	}
	defer sr.Release()
	var recs []arrow.Record
	for sr.Next() {
		rec := sr.Record()
		rec.Retain()
		recs = append(recs, rec)
	}
	if err := sr.Err(); err != nil {
		releaseRecords(recs)
		return nil, nil, errors.Wrap(err, "error reading arrow stream")
	}
	return sr.Schema(), recs, nil
}

func releaseRecords(recs []arrow.Record) {
	for _, rec := range recs {
		rec.Release()
	}
}

func tableFromRecords(schema *arrow.Schema, recs []arrow.Record) (*table.Table, error) {
	tbl := array.NewTableFromRecords(schema, recs)
	defer tbl.Release()
	return table.FromArrow(tbl)
}

func readArrow(path string, b []byte, mem memory.Allocator) (*table.Table, error) {
	schema, recs, err := readRecords(b, mem)
	if err != nil {
		return nil, newLoadError(path, err)
	}
	defer releaseRecords(recs)
	ret, err := tableFromRecords(schema, recs)
	if err != nil {
		return nil, newLoadError(path, err)
	}
	return ret, nil
}
