// Package gcs stores checkpoints as Google Cloud Storage objects,
// <prefix><stream>.ckpt.
package gcs

import (
	"context"
	"io"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/partsync/pkg/checkpoint"
	"github.com/ajitpratap0/partsync/pkg/config"
	"github.com/ajitpratap0/partsync/pkg/errors"
)

func init() {
	checkpoint.RegisterStore(config.StoreGCS, func(ctx context.Context, cfg *config.CheckpointConfig) (checkpoint.Store, error) {
		return Open(ctx, cfg.GCS)
	})
}

// Store is a GCS-backed checkpoint store.
type Store struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

// Open creates a client with application default credentials, or with
// cfg.CredentialsFile when set, and checks the bucket exists.
func Open(ctx context.Context, cfg config.GCSStoreConfig) (*Store, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create gcs client")
	}

	bucket := client.Bucket(cfg.Bucket)
	if _, err := bucket.Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "cannot access checkpoint bucket").
			WithDetail("bucket", cfg.Bucket)
	}
	return &Store{client: client, bucket: bucket, prefix: cfg.Prefix}, nil
}

func (s *Store) Name() string { return config.StoreGCS }

func (s *Store) object(stream string) *storage.ObjectHandle {
	return s.bucket.Object(s.prefix + stream + checkpoint.FileSuffix)
}

func (s *Store) Save(ctx context.Context, stream string, data []byte) error {
	w := s.object(stream).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	// checkpoints are small; a single request avoids resumable uploads
	w.ChunkSize = 0

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to write checkpoint").WithDetail("stream", stream)
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to upload checkpoint").WithDetail("stream", stream)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, stream string) ([]byte, error) {
	r, err := s.object(stream).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, checkpoint.NewNotFoundError(s.Name(), stream)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to open checkpoint").WithDetail("stream", stream)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read checkpoint").WithDetail("stream", stream)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, stream string) error {
	err := s.object(stream).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to delete checkpoint").WithDetail("stream", stream)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: s.prefix, Delimiter: "/"})

	var streams []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to list checkpoints")
		}
		name, ok := strings.CutPrefix(attrs.Name, s.prefix)
		if !ok {
			continue
		}
		if stream, ok := strings.CutSuffix(name, checkpoint.FileSuffix); ok && stream != "" {
			streams = append(streams, stream)
		}
	}
	sort.Strings(streams)
	return streams, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
