package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ajitpratap0/partsync/pkg/config"
	"github.com/ajitpratap0/partsync/pkg/errors"
)

// FileStore keeps one file per stream, <dir>/<stream>.ckpt. Writes go to a
// temporary file that is synced and renamed over the previous checkpoint, so
// a crash leaves either the old or the new checkpoint in place.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a store rooted at it.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "checkpoint directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create checkpoint directory").
			WithDetail("dir", dir)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Name() string { return config.StoreFile }

// Dir returns the checkpoint directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(stream string) string {
	return filepath.Join(s.dir, stream+FileSuffix)
}

func (s *FileStore) Save(ctx context.Context, stream string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+stream+"-*.tmp")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create temporary checkpoint file")
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write checkpoint").WithDetail("stream", stream)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to sync checkpoint").WithDetail("stream", stream)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close checkpoint").WithDetail("stream", stream)
	}
	if err := os.Rename(tmpName, s.path(stream)); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to replace checkpoint").WithDetail("stream", stream)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, stream string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(stream))
	if os.IsNotExist(err) {
		return nil, NewNotFoundError(s.Name(), stream)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read checkpoint").WithDetail("stream", stream)
	}
	return data, nil
}

func (s *FileStore) Delete(ctx context.Context, stream string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path(stream)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to delete checkpoint").WithDetail("stream", stream)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to list checkpoints").WithDetail("dir", s.dir)
	}
	streams := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, FileSuffix) {
			continue
		}
		streams = append(streams, strings.TrimSuffix(name, FileSuffix))
	}
	sort.Strings(streams)
	return streams, nil
}

// Close is a no-op; the file store holds no open handles between calls.
func (s *FileStore) Close() error { return nil }
