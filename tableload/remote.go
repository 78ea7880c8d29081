package tableload

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tblverify/retry"
	"github.com/cockroachdb/tblverify/table"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// ObjectStore fetches whole objects from a bucket.
type ObjectStore interface {
	// Get returns the contents of the object. Errors marked with ErrNotFound
	// are not retried.
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

type objectLocation struct {
	scheme string
	bucket string
	key    string
}

func parseObjectURL(path string) (objectLocation, bool) {
	u, err := url.Parse(path)
	if err != nil {
		return objectLocation{}, false
	}
	switch u.Scheme {
	case "s3", "gs":
	default:
		return objectLocation{}, false
	}
	return objectLocation{
		scheme: u.Scheme,
		bucket: u.Host,
		key:    strings.TrimPrefix(u.Path, "/"),
	}, true
}

func newObjectStore(ctx context.Context, scheme string, logger zerolog.Logger) (ObjectStore, error) {
	switch scheme {
	case "s3":
		sess, err := session.NewSession()
		if err != nil {
			return nil, errors.Wrap(err, "error creating aws session")
		}
		return &s3Store{logger: logger, session: sess}, nil
	case "gs":
		creds, err := google.FindDefaultCredentials(ctx, storage.ScopeReadOnly)
		if err != nil {
			return nil, errors.Wrap(err, "error finding google credentials")
		}
		client, err := storage.NewClient(ctx, option.WithCredentials(creds))
		if err != nil {
			return nil, errors.Wrap(err, "error creating gcs client")
		}
		return &gcsStore{logger: logger, client: client}, nil
	}
	return nil, errors.AssertionFailedf("unknown object store scheme %q", scheme)
}

func loadRemote(
	ctx context.Context, path string, loc objectLocation, opts loadOpts,
) (*table.Table, error) {
	if loc.bucket == "" || loc.key == "" || strings.HasSuffix(loc.key, "/") {
		return nil, unsupportedError(path)
	}
	f := formatOf(loc.key)
	if f == formatUnknown {
		return nil, unsupportedError(path)
	}

	store, ok := opts.stores[loc.scheme]
	if !ok {
		var err error
		if store, err = newObjectStore(ctx, loc.scheme, opts.logger); err != nil {
			return nil, err
		}
		if c, ok := store.(io.Closer); ok {
			defer func() { _ = c.Close() }()
		}
	}

	var b []byte
	attempt := 0
	if err := retry.Do(ctx, opts.retrySettings, func() error {
		attempt++
		var err error
		b, err = store.Get(ctx, loc.bucket, loc.key)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return retry.Permanent(err)
			}
			opts.logger.Warn().Err(err).Str("path", path).Int("attempt", attempt).Msgf("error fetching object")
		}
		return err
	}); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFoundError(path)
		}
		return nil, errors.Wrapf(err, "error fetching %s", path)
	}
	opts.logger.Debug().Str("path", path).Int("bytes", len(b)).Msgf("fetched object")

	switch f {
	case formatParquet:
		return readParquet(ctx, path, bytes.NewReader(b), opts.mem)
	default:
		return readArrow(path, b, opts.mem)
	}
}

type s3Store struct {
	logger  zerolog.Logger
	session *session.Session
}

func (s *s3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	s.logger.Debug().Str("bucket", bucket).Str("key", key).Msgf("downloading s3 object")
	buf := aws.NewWriteAtBuffer(nil)
	if _, err := s3manager.NewDownloader(s.session).DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, errors.Mark(err, ErrNotFound)
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

type gcsStore struct {
	logger zerolog.Logger
	client *storage.Client
}

func (s *gcsStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	s.logger.Debug().Str("bucket", bucket).Str("key", key).Msgf("downloading gcs object")
	r, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, errors.Mark(err, ErrNotFound)
		}
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}

func (s *gcsStore) Close() error {
	return s.client.Close()
}
