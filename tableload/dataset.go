package tableload

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tblverify/table"
	"github.com/goccy/go-json"
)

const (
	datasetStateFile = "state.json"
	datasetDictFile  = "dataset_dict.json"
	datasetDataGlob  = "data-*.arrow"
)

// datasetState is the subset of a saved dataset's state.json we use.
type datasetState struct {
	DataFiles []struct {
		Filename string `json:"filename"`
	} `json:"_data_files"`
}

// datasetFiles lists the arrow shards of a saved dataset in order.
func datasetFiles(dir string) ([]string, error) {
	if _, err := os.Stat(filepath.Join(dir, datasetDictFile)); err == nil {
		return nil, errors.New("directory holds multiple splits; point at a single split instead")
	}

	b, err := os.ReadFile(filepath.Join(dir, datasetStateFile))
	switch {
	case err == nil:
		var state datasetState
		if err := json.Unmarshal(b, &state); err != nil {
			return nil, errors.Wrapf(err, "error parsing %s", datasetStateFile)
		}
		if len(state.DataFiles) == 0 {
			return nil, errors.Newf("%s lists no data files", datasetStateFile)
		}
		ret := make([]string, len(state.DataFiles))
		for i, f := range state.DataFiles {
			ret[i] = filepath.Join(dir, f.Filename)
		}
		return ret, nil
	case os.IsNotExist(err):
		ret, err := filepath.Glob(filepath.Join(dir, datasetDataGlob))
		if err != nil {
			return nil, err
		}
		if len(ret) == 0 {
			return nil, errors.Newf("no %s or %s files found", datasetStateFile, datasetDataGlob)
		}
		sort.Strings(ret)
		return ret, nil
	default:
		return nil, errors.Wrapf(err, "error reading %s", datasetStateFile)
	}
}

func loadDatasetDir(dir string, mem memory.Allocator) (*table.Table, error) {
	files, err := datasetFiles(dir)
	if err != nil {
		return nil, newLoadError(dir, err)
	}

	var schema *arrow.Schema
	var recs []arrow.Record
	defer func() { releaseRecords(recs) }()
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, newLoadError(dir, errors.Wrapf(err, "error reading %s", filepath.Base(f)))
		}
		s, fileRecs, err := readRecords(b, mem)
		if err != nil {
			return nil, newLoadError(dir, errors.Wrapf(err, "error decoding %s", filepath.Base(f)))
		}
		recs = append(recs, fileRecs...)
		if schema == nil {
			schema = s
		} else if !schema.Equal(s) {
			return nil, newLoadError(
				dir,
				errors.Newf("schema of %s differs from %s", filepath.Base(f), filepath.Base(files[0])),
			)
		}
	}

	ret, err := tableFromRecords(schema, recs)
	if err != nil {
		return nil, newLoadError(dir, err)
	}
	return ret, nil
}
