package incremental

import (
	"github.com/ajitpratap0/partsync/pkg/errors"
)

// CursorConstructor builds single-partition cursors of one concrete algorithm.
type CursorConstructor interface {
	NewCursor() (Cursor, error)
}

// CursorConstructorFunc adapts a function to CursorConstructor.
type CursorConstructorFunc func() (Cursor, error)

// NewCursor calls f.
func (f CursorConstructorFunc) NewCursor() (Cursor, error) {
	return f()
}

// CursorFactory creates fresh partition cursors. It keeps PerPartitionCursor
// independent of the cursoring strategy.
type CursorFactory struct {
	constructor CursorConstructor
}

// NewCursorFactory returns a factory delegating to constructor.
func NewCursorFactory(constructor CursorConstructor) *CursorFactory {
	return &CursorFactory{constructor: constructor}
}

// Create returns a new cursor with no initial state applied. The caller must
// call SetInitialState before using it.
func (f *CursorFactory) Create() (Cursor, error) {
	if f == nil || f.constructor == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "cursor factory has no constructor")
	}
	cursor, err := f.constructor.NewCursor()
	if err != nil {
		return nil, err
	}
	if cursor == nil {
		return nil, errors.New(errors.ErrorTypeInternal, "cursor constructor returned nil cursor")
	}
	return cursor, nil
}
