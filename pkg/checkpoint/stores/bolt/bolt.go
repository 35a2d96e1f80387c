// Package bolt stores checkpoints in an embedded bbolt database, one key
// per stream in a single bucket.
package bolt

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/ajitpratap0/partsync/pkg/checkpoint"
	"github.com/ajitpratap0/partsync/pkg/config"
	"github.com/ajitpratap0/partsync/pkg/errors"
)

func init() {
	checkpoint.RegisterStore(config.StoreBolt, func(_ context.Context, cfg *config.CheckpointConfig) (checkpoint.Store, error) {
		return Open(cfg.Bolt)
	})
}

// Store is a bbolt-backed checkpoint store.
type Store struct {
	db     *bbolt.DB
	bucket []byte
}

// Open opens or creates the database at cfg.Path and ensures the bucket.
// bbolt holds an exclusive file lock; LockTimeout bounds waiting for it.
func Open(cfg config.BoltStoreConfig) (*Store, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create database directory")
		}
	}

	opts := *bbolt.DefaultOptions
	opts.Timeout = cfg.LockTimeout
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	opts.FreelistType = bbolt.FreelistMapType

	db, err := bbolt.Open(cfg.Path, 0o600, &opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open bolt database").
			WithDetail("path", cfg.Path)
	}

	s := &Store{db: db, bucket: []byte(cfg.Bucket)}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create bolt bucket").
			WithDetail("bucket", cfg.Bucket)
	}
	return s, nil
}

func (s *Store) Name() string { return config.StoreBolt }

func (s *Store) Save(ctx context.Context, stream string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(stream), data)
	})
	return s.wrap(err, "failed to save checkpoint", stream)
}

func (s *Store) Load(ctx context.Context, stream string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(stream))
		if v == nil {
			return checkpoint.NewNotFoundError(s.Name(), stream)
		}
		// v is only valid inside the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		if checkpoint.IsNotFound(err) {
			return nil, err
		}
		return nil, s.wrap(err, "failed to load checkpoint", stream)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, stream string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(stream))
	})
	return s.wrap(err, "failed to delete checkpoint", stream)
}

// List returns the keys of the bucket; bbolt keeps them in byte order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var streams []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, _ []byte) error {
			streams = append(streams, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, s.wrap(err, "failed to list checkpoints", "")
	}
	return streams, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) wrap(err error, message, stream string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return checkpoint.NewClosedError(s.Name())
	}
	e := errors.Wrap(err, errors.ErrorTypeCheckpoint, message)
	if stream != "" {
		e = e.WithDetail("stream", stream)
	}
	return e
}
