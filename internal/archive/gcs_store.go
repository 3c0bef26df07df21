package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

type gcsStore struct {
	bucket *storage.BucketHandle
	name   string
	prefix string
}

// NewGCSStore keeps documents as objects in a Cloud Storage bucket.
// Credentials come from the environment (ADC).
func NewGCSStore(ctx context.Context, bucket, prefix string) (BlobStore, io.Closer, error) {
	if bucket == "" {
		return nil, nil, errors.New("gcs archive backend requires a bucket")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create storage client: %w", err)
	}
	return &gcsStore{
		bucket: client.Bucket(bucket),
		name:   bucket,
		prefix: strings.Trim(prefix, "/"),
	}, client, nil
}

func (s *gcsStore) object(p string) string {
	if s.prefix == "" {
		return p
	}
	return path.Join(s.prefix, p)
}

func (s *gcsStore) Location(p string) string {
	return "gs://" + s.name + "/" + s.object(p)
}

// Put ignores CreateDirectories: object stores have no directories.
func (s *gcsStore) Put(ctx context.Context, p string, data []byte, opts PutOptions) error {
	obj := s.bucket.Object(s.object(p))
	if !opts.Overwrite {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}
	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write archive object: %w", err)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return ErrExists
		}
		return fmt.Errorf("finalize archive object: %w", err)
	}
	return nil
}

func (s *gcsStore) Get(ctx context.Context, p string) ([]byte, error) {
	r, err := s.bucket.Object(s.object(p)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *gcsStore) Delete(ctx context.Context, p string) error {
	err := s.bucket.Object(s.object(p)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete archive object: %w", err)
	}
	return nil
}

func (s *gcsStore) Walk(ctx context.Context, fn func(p string) error) error {
	q := &storage.Query{}
	if s.prefix != "" {
		q.Prefix = s.prefix + "/"
	}
	it := s.bucket.Objects(ctx, q)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("list archive objects: %w", err)
		}
		if !strings.HasSuffix(attrs.Name, ".json") {
			continue
		}
		rel := strings.TrimPrefix(attrs.Name, q.Prefix)
		if err := fn(rel); err != nil {
			return err
		}
	}
}
