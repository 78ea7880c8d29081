// Package tableload reads tables from parquet files, arrow files and
// persisted dataset directories, locally or from object storage.
package tableload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tblverify/retry"
	"github.com/cockroachdb/tblverify/table"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotFound is marked on errors for inputs which do not exist.
	ErrNotFound = errors.New("not found")
	// ErrLoad is marked on errors for inputs which exist but could not be
	// decoded.
	ErrLoad = errors.New("could not load")
	// ErrUnsupportedFormat is marked on errors for inputs of an unknown kind.
	ErrUnsupportedFormat = errors.New("unsupported file type or format")
)

// LoadError is returned when an input exists but could not be decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("could not load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func newLoadError(path string, err error) error {
	return errors.Mark(&LoadError{Path: path, Err: err}, ErrLoad)
}

func notFoundError(path string) error {
	return errors.Mark(errors.Newf("file or directory not found: %s", path), ErrNotFound)
}

func unsupportedError(path string) error {
	return errors.Mark(errors.Newf("unsupported file type or format: %s", path), ErrUnsupportedFormat)
}

type format int

const (
	formatUnknown format = iota
	formatParquet
	formatArrow
)

func formatOf(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".pq":
		return formatParquet
	case ".arrow", ".feather", ".ipc":
		return formatArrow
	}
	return formatUnknown
}

type LoadOpt func(*loadOpts)

type loadOpts struct {
	mem           memory.Allocator
	logger        zerolog.Logger
	retrySettings retry.Settings
	stores        map[string]ObjectStore
}

func WithAllocator(mem memory.Allocator) LoadOpt {
	return func(o *loadOpts) {
		o.mem = mem
	}
}

func WithLogger(logger zerolog.Logger) LoadOpt {
	return func(o *loadOpts) {
		o.logger = logger
	}
}

// WithRetrySettings controls how fetches from object storage are retried.
func WithRetrySettings(settings retry.Settings) LoadOpt {
	return func(o *loadOpts) {
		o.retrySettings = settings
	}
}

// WithObjectStore serves URLs with the given scheme (e.g. "s3") from store
// instead of the default client for that scheme.
func WithObjectStore(scheme string, store ObjectStore) LoadOpt {
	return func(o *loadOpts) {
		o.stores[scheme] = store
	}
}

func DefaultRetrySettings() retry.Settings {
	s := retry.DefaultSettings()
	s.InitialBackoff = 250 * time.Millisecond
	s.MaxBackoff = 5 * time.Second
	s.MaxRetries = 5
	return s
}

func makeOpts(inOpts []LoadOpt) loadOpts {
	opts := loadOpts{
		mem:           memory.DefaultAllocator,
		logger:        zerolog.Nop(),
		retrySettings: DefaultRetrySettings(),
		stores:        make(map[string]ObjectStore),
	}
	for _, applyOpt := range inOpts {
		applyOpt(&opts)
	}
	return opts
}

// Load reads the table at path. The path may be a local parquet or arrow
// file, a local dataset directory, or an s3:// or gs:// URL of a parquet or
// arrow file.
func Load(ctx context.Context, path string, inOpts ...LoadOpt) (*table.Table, error) {
	opts := makeOpts(inOpts)
	return load(ctx, path, opts)
}

func load(ctx context.Context, path string, opts loadOpts) (*table.Table, error) {
	if loc, ok := parseObjectURL(path); ok {
		return loadRemote(ctx, path, loc, opts)
	}

	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFoundError(path)
		}
		return nil, errors.Wrapf(err, "error accessing %s", path)
	}
	if fi.IsDir() {
		opts.logger.Debug().Str("path", path).Msgf("loading dataset directory")
		return loadDatasetDir(path, opts.mem)
	}

	switch formatOf(path) {
	case formatParquet:
		opts.logger.Debug().Str("path", path).Msgf("loading parquet file")
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "error opening %s", path)
		}
		defer func() { _ = f.Close() }()
		return readParquet(ctx, path, f, opts.mem)
	case formatArrow:
		opts.logger.Debug().Str("path", path).Msgf("loading arrow file")
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading %s", path)
		}
		return readArrow(path, b, opts.mem)
	}
	return nil, unsupportedError(path)
}

// LoadPair loads both paths concurrently. If either fails, the error is
// returned and nothing is kept.
func LoadPair(ctx context.Context, paths [2]string, inOpts ...LoadOpt) ([2]*table.Table, error) {
	opts := makeOpts(inOpts)
	var ret [2]*table.Table
	g, gCtx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			t, err := load(gCtx, path, opts)
			if err != nil {
				return err
			}
			ret[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, t := range ret {
			if t != nil {
				t.Release()
			}
		}
		return [2]*table.Table{}, err
	}
	return ret, nil
}
