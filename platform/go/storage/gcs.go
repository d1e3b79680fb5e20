package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStore keeps objects in one Cloud Storage bucket.
type GCSStore struct {
	bucket *gcs.BucketHandle
	name   string
}

func NewGCSStore(bucket *gcs.BucketHandle, name string) *GCSStore {
	if bucket == nil {
		panic("gcs store requires a bucket handle")
	}
	return &GCSStore{bucket: bucket, name: name}
}

func (s *GCSStore) Put(ctx context.Context, key, contentType string, r io.Reader) (Object, error) {
	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return Object{}, fmt.Errorf("write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return Object{}, fmt.Errorf("close %s: %w", key, err)
	}
	return fromAttrs(w.Attrs()), nil
}

func (s *GCSStore) Open(ctx context.Context, key string) (io.ReadCloser, Object, error) {
	obj := s.bucket.Object(key)
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return nil, Object{}, mapGCSError(err)
	}
	rc, err := obj.NewReader(ctx)
	if err != nil {
		return nil, Object{}, mapGCSError(err)
	}
	return rc, fromAttrs(attrs), nil
}

func (s *GCSStore) List(ctx context.Context, prefix string) ([]Object, error) {
	it := s.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})
	var out []Object
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		out = append(out, fromAttrs(attrs))
	}
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	return mapGCSError(s.bucket.Object(key).Delete(ctx))
}

// Check verifies the bucket is reachable with the current credentials.
func (s *GCSStore) Check(ctx context.Context) error {
	if _, err := s.bucket.Attrs(ctx); err != nil {
		return fmt.Errorf("bucket %s attrs: %w", s.name, err)
	}
	return nil
}

func fromAttrs(a *gcs.ObjectAttrs) Object {
	if a == nil {
		return Object{}
	}
	return Object{Key: a.Name, ContentType: a.ContentType, Size: a.Size, Updated: a.Updated}
}

func mapGCSError(err error) error {
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrNotFound
	}
	return err
}

var _ Store = (*GCSStore)(nil)
