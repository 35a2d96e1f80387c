package checkpoint

import (
	"context"
	stderrors "errors"

	"github.com/ajitpratap0/partsync/pkg/config"
	"github.com/ajitpratap0/partsync/pkg/errors"
)

// FileSuffix is appended to the stream name by stores that keep one file or
// object per stream.
const FileSuffix = ".ckpt"

// ErrNotFound is the cause of errors returned by Store.Load for a stream
// without a checkpoint.
var ErrNotFound = stderrors.New("checkpoint not found")

// ErrClosed is the cause of errors returned by a store after Close.
var ErrClosed = stderrors.New("checkpoint store closed")

// Store persists encoded checkpoints, one blob per stream. Implementations
// must be safe for concurrent use.
type Store interface {
	// Name returns the registered store name, used in metrics and logs.
	Name() string

	// Save replaces the checkpoint of stream.
	Save(ctx context.Context, stream string, data []byte) error

	// Load returns the checkpoint of stream, or an error matching
	// ErrNotFound when there is none.
	Load(ctx context.Context, stream string) ([]byte, error)

	// Delete removes the checkpoint of stream. Deleting a missing
	// checkpoint is not an error.
	Delete(ctx context.Context, stream string) error

	// List returns the streams that have a checkpoint, sorted.
	List(ctx context.Context) ([]string, error)

	// Close releases connections and file handles.
	Close() error
}

// NewNotFoundError reports that store holds no checkpoint for stream.
func NewNotFoundError(store, stream string) error {
	return errors.Wrap(ErrNotFound, errors.ErrorTypeNotFound, "no checkpoint for stream").
		WithDetail("store", store).
		WithDetail("stream", stream)
}

// NewClosedError reports use of a closed store.
func NewClosedError(store string) error {
	return errors.Wrap(ErrClosed, errors.ErrorTypeCheckpoint, "store is closed").
		WithDetail("store", store)
}

// IsNotFound reports whether err means a missing checkpoint.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ValidateStream rejects stream names that cannot be used as a key in every
// store.
func ValidateStream(stream string) error {
	if !config.ValidStreamName(stream) {
		return errors.Newf(errors.ErrorTypeValidation,
			"invalid stream name %q: only letters, digits, '_', '.' and '-' are allowed", stream)
	}
	return nil
}
