package tableload

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tblverify/retry"
	"github.com/cockroachdb/tblverify/table"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"
)

type parquetRow struct {
	ID    int64    `parquet:"id"`
	Name  string   `parquet:"name"`
	Score *float64 `parquet:"score,optional"`
}

func writeParquet(t *testing.T, path string, rows []parquetRow) {
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()
	w := parquet.NewGenericWriter[parquetRow](f, parquet.Compression(&parquet.Snappy))
	_, err = w.Write(rows)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

var testSchema = arrow.NewSchema(
	[]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "tags", Type: arrow.ListOf(arrow.BinaryTypes.String), Nullable: true},
	},
	nil,
)

// encodeArrow encodes one record batch per JSON chunk, as an IPC file or
// stream.
func encodeArrow(t *testing.T, schema *arrow.Schema, stream bool, batches ...string) []byte {
	var buf bytes.Buffer
	var w interface {
		Write(arrow.Record) error
		Close() error
	}
	if stream {
		w = ipc.NewWriter(&buf, ipc.WithSchema(schema))
	} else {
		fw, err := ipc.NewFileWriter(&buf, ipc.WithSchema(schema))
		require.NoError(t, err)
		w = fw
	}
	for _, b := range batches {
		rec, _, err := array.RecordFromJSON(memory.DefaultAllocator, schema, strings.NewReader(b))
		require.NoError(t, err)
		require.NoError(t, w.Write(rec))
		rec.Release()
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, b []byte) {
	require.NoError(t, os.WriteFile(path, b, 0o644))
}

// columnString renders a column as a single array.
func columnString(t *testing.T, tbl *table.Table, name string) string {
	col, ok := tbl.Column(name)
	require.True(t, ok, "column %s not found", name)
	arr, err := array.Concatenate(col.Data.Chunks(), memory.DefaultAllocator)
	require.NoError(t, err)
	defer arr.Release()
	return arr.String()
}

func TestLoadLocal(t *testing.T) {
	dir := t.TempDir()
	score := 0.5
	writeParquet(t, filepath.Join(dir, "rows.parquet"), []parquetRow{
		{ID: 2, Name: "b", Score: &score},
		{ID: 1, Name: "a"},
	})
	writeFile(t, filepath.Join(dir, "rows.arrow"), encodeArrow(
		t, testSchema, false, `[{"id": 1, "tags": ["x"]}]`, `[{"id": null, "tags": null}, {"id": 3, "tags": []}]`,
	))
	writeFile(t, filepath.Join(dir, "rows.stream.ipc"), encodeArrow(
		t, testSchema, true, `[{"id": 1, "tags": ["x", "y"]}, {"id": 2, "tags": []}]`,
	))

	hfDir := filepath.Join(dir, "hf")
	require.NoError(t, os.Mkdir(hfDir, 0o755))
	writeFile(t, filepath.Join(hfDir, "state.json"), []byte(`{
  "_data_files": [
    {"filename": "data-00000-of-00002.arrow"},
    {"filename": "data-00001-of-00002.arrow"}
  ],
  "_fingerprint": "0123456789abcdef",
  "_split": "train"
}`))
	writeFile(t, filepath.Join(hfDir, "data-00000-of-00002.arrow"), encodeArrow(
		t, testSchema, true, `[{"id": 1, "tags": ["x"]}]`,
	))
	writeFile(t, filepath.Join(hfDir, "data-00001-of-00002.arrow"), encodeArrow(
		t, testSchema, true, `[{"id": 2, "tags": []}]`, `[{"id": 3, "tags": null}]`,
	))

	globDir := filepath.Join(dir, "glob")
	require.NoError(t, os.Mkdir(globDir, 0o755))
	writeFile(t, filepath.Join(globDir, "data-00001-of-00002.arrow"), encodeArrow(
		t, testSchema, true, `[{"id": 20, "tags": []}]`,
	))
	writeFile(t, filepath.Join(globDir, "data-00000-of-00002.arrow"), encodeArrow(
		t, testSchema, true, `[{"id": 10, "tags": []}]`,
	))

	for _, tc := range []struct {
		desc            string
		path            string
		expectedColumns []string
		expectedValues  map[string]string
	}{
		{
			desc:            "parquet",
			path:            "rows.parquet",
			expectedColumns: []string{"id", "name", "score"},
			expectedValues: map[string]string{
				"id":    "[2 1]",
				"name":  `["b" "a"]`,
				"score": "[0.5 (null)]",
			},
		},
		{
			desc:            "arrow file",
			path:            "rows.arrow",
			expectedColumns: []string{"id", "tags"},
			expectedValues: map[string]string{
				"id":   "[1 (null) 3]",
				"tags": `[["x"] (null) []]`,
			},
		},
		{
			desc:            "arrow stream",
			path:            "rows.stream.ipc",
			expectedColumns: []string{"id", "tags"},
			expectedValues: map[string]string{
				"id": "[1 2]",
			},
		},
		{
			desc:            "dataset directory",
			path:            "hf",
			expectedColumns: []string{"id", "tags"},
			expectedValues: map[string]string{
				"id":   "[1 2 3]",
				"tags": `[["x"] [] (null)]`,
			},
		},
		{
			desc:            "dataset directory without state",
			path:            "glob",
			expectedColumns: []string{"id", "tags"},
			expectedValues: map[string]string{
				"id": "[10 20]",
			},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			tbl, err := Load(context.Background(), filepath.Join(dir, tc.path))
			require.NoError(t, err)
			defer tbl.Release()
			require.NoError(t, tbl.Validate())
			require.Equal(t, tc.expectedColumns, tbl.ColumnNames())
			for name, expected := range tc.expectedValues {
				require.Equal(t, expected, columnString(t, tbl, name))
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "rows.csv"), []byte("id\n1\n"))
	writeFile(t, filepath.Join(dir, "corrupt.parquet"), []byte("not a parquet file"))
	writeFile(t, filepath.Join(dir, "corrupt.arrow"), []byte("not an arrow file"))

	emptyDir := filepath.Join(dir, "empty")
	require.NoError(t, os.Mkdir(emptyDir, 0o755))

	dictDir := filepath.Join(dir, "dict")
	require.NoError(t, os.Mkdir(dictDir, 0o755))
	writeFile(t, filepath.Join(dictDir, "dataset_dict.json"), []byte(`{"splits": ["train", "test"]}`))

	mismatchDir := filepath.Join(dir, "mismatch")
	require.NoError(t, os.Mkdir(mismatchDir, 0o755))
	writeFile(t, filepath.Join(mismatchDir, "data-00000-of-00002.arrow"), encodeArrow(
		t, testSchema, true, `[{"id": 1, "tags": []}]`,
	))
	writeFile(t, filepath.Join(mismatchDir, "data-00001-of-00002.arrow"), encodeArrow(
		t,
		arrow.NewSchema([]arrow.Field{{Name: "id", Type: arrow.PrimitiveTypes.Int32, Nullable: true}}, nil),
		true,
		`[{"id": 1}]`,
	))

	for _, tc := range []struct {
		desc          string
		path          string
		expectedMark  error
		expectedError string
	}{
		{
			desc:          "not found",
			path:          "missing.parquet",
			expectedMark:  ErrNotFound,
			expectedError: "file or directory not found: %s",
		},
		{
			desc:          "unsupported extension",
			path:          "rows.csv",
			expectedMark:  ErrUnsupportedFormat,
			expectedError: "unsupported file type or format: %s",
		},
		{
			desc:          "corrupt parquet",
			path:          "corrupt.parquet",
			expectedMark:  ErrLoad,
			expectedError: "could not load %s: ",
		},
		{
			desc:          "corrupt arrow",
			path:          "corrupt.arrow",
			expectedMark:  ErrLoad,
			expectedError: "could not load %s: not an arrow file or stream",
		},
		{
			desc:          "empty directory",
			path:          "empty",
			expectedMark:  ErrLoad,
			expectedError: "could not load %s: no state.json or data-*.arrow files found",
		},
		{
			desc:          "multiple splits",
			path:          "dict",
			expectedMark:  ErrLoad,
			expectedError: "could not load %s: directory holds multiple splits",
		},
		{
			desc:          "mismatching shard schemas",
			path:          "mismatch",
			expectedMark:  ErrLoad,
			expectedError: "could not load %s: schema of data-00001-of-00002.arrow differs from data-00000-of-00002.arrow",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			path := filepath.Join(dir, tc.path)
			_, err := Load(context.Background(), path)
			require.Error(t, err)
			require.True(t, errors.Is(err, tc.expectedMark), "unexpected error: %v", err)
			require.True(
				t,
				strings.HasPrefix(err.Error(), strings.ReplaceAll(tc.expectedError, "%s", path)),
				"unexpected error: %v",
				err,
			)
			if tc.expectedMark == ErrLoad {
				var loadErr *LoadError
				require.True(t, errors.As(err, &loadErr))
				require.Equal(t, path, loadErr.Path)
			}
		})
	}
}

func TestLoadPair(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.arrow"), encodeArrow(t, testSchema, false, `[{"id": 1, "tags": []}]`))
	writeParquet(t, filepath.Join(dir, "b.parquet"), []parquetRow{{ID: 1, Name: "a"}})

	tables, err := LoadPair(
		context.Background(),
		[2]string{filepath.Join(dir, "a.arrow"), filepath.Join(dir, "b.parquet")},
	)
	require.NoError(t, err)
	require.Equal(t, []string{"id", "tags"}, tables[0].ColumnNames())
	require.Equal(t, []string{"id", "name", "score"}, tables[1].ColumnNames())
	for _, tbl := range tables {
		tbl.Release()
	}

	_, err = LoadPair(
		context.Background(),
		[2]string{filepath.Join(dir, "a.arrow"), filepath.Join(dir, "missing.arrow")},
	)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestLoadAllocator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.arrow")
	writeFile(t, path, encodeArrow(t, testSchema, false, `[{"id": 1, "tags": ["x"]}]`, `[{"id": 2, "tags": []}]`))

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	tbl, err := Load(context.Background(), path, WithAllocator(mem))
	require.NoError(t, err)
	require.Equal(t, "[1 2]", columnString(t, tbl, "id"))
	tbl.Release()
	mem.AssertSize(t, 0)
}

func TestDefaultRetrySettings(t *testing.T) {
	s := DefaultRetrySettings()
	require.NoError(t, s.Verify())
	require.Equal(t, 2, s.Multiplier)
	require.Equal(t, 5, s.MaxRetries)
}

type fakeStore struct {
	objects  map[string][]byte
	failures int
	gets     int
}

func (s *fakeStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	s.gets++
	if s.gets <= s.failures {
		return nil, errors.New("connection reset by peer")
	}
	b, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.Mark(errors.Newf("no such key %s", key), ErrNotFound)
	}
	return b, nil
}

func TestLoadRemote(t *testing.T) {
	dir := t.TempDir()
	pqPath := filepath.Join(dir, "rows.parquet")
	writeParquet(t, pqPath, []parquetRow{{ID: 7, Name: "g"}})
	pqBytes, err := os.ReadFile(pqPath)
	require.NoError(t, err)

	objects := map[string][]byte{
		"bucket/path/rows.arrow":   encodeArrow(t, testSchema, false, `[{"id": 5, "tags": ["z"]}]`),
		"bucket/path/rows.parquet": pqBytes,
	}
	settings := retry.Settings{
		InitialBackoff: time.Millisecond,
		Multiplier:     2,
		MaxRetries:     3,
	}

	for _, tc := range []struct {
		desc           string
		path           string
		failures       int
		expectedGets   int
		expectedIDs    string
		expectedMark   error
		expectedPrefix string
	}{
		{
			desc:         "arrow from s3",
			path:         "s3://bucket/path/rows.arrow",
			expectedGets: 1,
			expectedIDs:  "[5]",
		},
		{
			desc:         "parquet from gcs after transient failures",
			path:         "gs://bucket/path/rows.parquet",
			failures:     2,
			expectedGets: 3,
			expectedIDs:  "[7]",
		},
		{
			desc:           "too many failures",
			path:           "s3://bucket/path/rows.arrow",
			failures:       5,
			expectedGets:   3,
			expectedPrefix: "error fetching s3://bucket/path/rows.arrow: giving up after 3 attempts",
		},
		{
			desc:           "missing object",
			path:           "s3://bucket/path/missing.arrow",
			expectedGets:   1,
			expectedMark:   ErrNotFound,
			expectedPrefix: "file or directory not found: s3://bucket/path/missing.arrow",
		},
		{
			desc:           "remote directory",
			path:           "gs://bucket/path/",
			expectedMark:   ErrUnsupportedFormat,
			expectedPrefix: "unsupported file type or format: gs://bucket/path/",
		},
		{
			desc:           "unknown extension",
			path:           "s3://bucket/path/rows.csv",
			expectedMark:   ErrUnsupportedFormat,
			expectedPrefix: "unsupported file type or format: s3://bucket/path/rows.csv",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			store := &fakeStore{objects: objects, failures: tc.failures}
			tbl, err := Load(
				context.Background(),
				tc.path,
				WithRetrySettings(settings),
				WithObjectStore("s3", store),
				WithObjectStore("gs", store),
			)
			require.Equal(t, tc.expectedGets, store.gets)
			if tc.expectedPrefix != "" {
				require.Error(t, err)
				require.True(t, strings.HasPrefix(err.Error(), tc.expectedPrefix), "unexpected error: %v", err)
				if tc.expectedMark != nil {
					require.True(t, errors.Is(err, tc.expectedMark))
				}
				return
			}
			require.NoError(t, err)
			defer tbl.Release()
			require.Equal(t, tc.expectedIDs, columnString(t, tbl, "id"))
		})
	}
}

func TestParseObjectURL(t *testing.T) {
	for _, tc := range []struct {
		path     string
		expected objectLocation
		ok       bool
	}{
		{path: "s3://b/k/x.parquet", expected: objectLocation{scheme: "s3", bucket: "b", key: "k/x.parquet"}, ok: true},
		{path: "gs://b/x.arrow", expected: objectLocation{scheme: "gs", bucket: "b", key: "x.arrow"}, ok: true},
		{path: "/tmp/x.parquet"},
		{path: "data/x.parquet"},
		{path: "https://example.com/x.parquet"},
	} {
		t.Run(tc.path, func(t *testing.T) {
			loc, ok := parseObjectURL(tc.path)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.expected, loc)
		})
	}
}
