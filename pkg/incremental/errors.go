package incremental

import (
	stderrors "errors"
	"sort"

	"github.com/ajitpratap0/partsync/pkg/errors"
	stringpool "github.com/ajitpratap0/partsync/pkg/strings"
)

// Sentinels matched with errors.Is. Each typed error below unwraps to one of them.
var (
	ErrOverlappingKeys   = stderrors.New("partition and cursor slice keys overlap")
	ErrPartitionNotFound = stderrors.New("partition not found")
	ErrMalformedState    = stderrors.New("malformed persisted state")
	ErrDecoding          = stderrors.New("partition key decoding failed")
	ErrEncoding          = stderrors.New("partition key encoding failed")
	ErrKeyCollision      = stderrors.New("request option key collision")
	ErrAlreadyStarted    = stderrors.New("slice iteration already started")
	ErrMissingSlice      = stderrors.New("stream slice is required")
)

// OverlappingKeysError is returned by NewCompositeSlice when the partition and
// the cursor slice share keys.
type OverlappingKeysError struct {
	Keys []string
	err  *errors.Error
}

func newOverlappingKeysError(keys []string) *OverlappingKeysError {
	sort.Strings(keys)
	return &OverlappingKeysError{
		Keys: keys,
		err: errors.Wrap(ErrOverlappingKeys, errors.ErrorTypeContract,
			stringpool.Sprintf("keys [%s] present in both partition and cursor slice", stringpool.JoinPooled(keys, ", "))).
			WithDetail("keys", keys),
	}
}

func (e *OverlappingKeysError) Error() string { return e.err.Error() }
func (e *OverlappingKeysError) Unwrap() error { return e.err }

// PartitionNotFoundError means a caller referenced a partition that was never
// registered, typically a state update for a slice StreamSlices did not produce.
type PartitionNotFoundError struct {
	Key string
	err *errors.Error
}

func newPartitionNotFoundError(key string) *PartitionNotFoundError {
	return &PartitionNotFoundError{
		Key: key,
		err: errors.Wrap(ErrPartitionNotFound, errors.ErrorTypeContract,
			stringpool.Sprintf("no cursor registered for partition %s", key)).
			WithDetail("partition_key", key),
	}
}

func (e *PartitionNotFoundError) Error() string { return e.err.Error() }
func (e *PartitionNotFoundError) Unwrap() error { return e.err }

// MalformedStateError reports a persisted state that does not follow the
// {"states": [{"partition": ..., "cursor": ...}]} layout.
type MalformedStateError struct {
	// Index of the offending entry in "states", or -1 for the top level.
	Index  int
	Reason string
	err    *errors.Error
}

func newMalformedStateError(index int, reason string) *MalformedStateError {
	msg := reason
	if index >= 0 {
		msg = stringpool.Sprintf("states[%d]: %s", index, reason)
	}
	return &MalformedStateError{
		Index:  index,
		Reason: reason,
		err:    errors.Wrap(ErrMalformedState, errors.ErrorTypeData, msg).WithDetail("index", index),
	}
}

func (e *MalformedStateError) Error() string { return e.err.Error() }
func (e *MalformedStateError) Unwrap() error { return e.err }

// DecodingError is returned by FromKey for text that is not a serialized partition.
type DecodingError struct {
	Key   string
	Cause error
	err   *errors.Error
}

func newDecodingError(key string, cause error) *DecodingError {
	return &DecodingError{
		Key:   key,
		Cause: cause,
		err: errors.Wrap(stderrors.Join(ErrDecoding, cause), errors.ErrorTypeData,
			stringpool.Sprintf("cannot decode partition key %q", key)).
			WithDetail("partition_key", key),
	}
}

func (e *DecodingError) Error() string { return e.err.Error() }
func (e *DecodingError) Unwrap() error { return e.err }

func newEncodingError(partition Partition, cause error) error {
	return errors.Wrap(stderrors.Join(ErrEncoding, cause), errors.ErrorTypeData,
		"cannot encode partition").
		WithDetail("fields", len(partition))
}

// KeyCollisionError is returned by the request-shaping methods when the
// router and the partition cursor contribute the same key.
type KeyCollisionError struct {
	Option string
	Keys   []string
	err    *errors.Error
}

func newKeyCollisionError(option string, keys []string) *KeyCollisionError {
	sort.Strings(keys)
	return &KeyCollisionError{
		Option: option,
		Keys:   keys,
		err: errors.Wrap(ErrKeyCollision, errors.ErrorTypeConflict,
			stringpool.Sprintf("request %s: router and cursor both set [%s]", option, stringpool.JoinPooled(keys, ", "))).
			WithDetail("option", option).
			WithDetail("keys", keys),
	}
}

func (e *KeyCollisionError) Error() string { return e.err.Error() }
func (e *KeyCollisionError) Unwrap() error { return e.err }
