package incremental

import (
	"context"
	"iter"
)

// RequestOptionsProvider contributes request parameters, headers and body
// fields for one unit of work of type T.
type RequestOptionsProvider[T any] interface {
	RequestParams(state State, slice T, token PageToken) (Mapping, error)
	RequestHeaders(state State, slice T, token PageToken) (Mapping, error)
	RequestBodyData(state State, slice T, token PageToken) (Mapping, error)
	RequestBodyJSON(state State, slice T, token PageToken) (Mapping, error)
}

// PartitionRouter enumerates the partitions of a stream, e.g. by paging a
// parent API. Errors yielded by StreamSlices stop the enumeration.
type PartitionRouter interface {
	StreamSlices(ctx context.Context) iter.Seq2[Partition, error]
	RequestOptionsProvider[Partition]
}

// Cursor tracks incremental progress for exactly one partition.
type Cursor interface {
	SetInitialState(state State) error
	StreamSlices(ctx context.Context) iter.Seq2[CursorSlice, error]
	UpdateState(slice CursorSlice, record Record) error
	GetStreamState() State
	RequestOptionsProvider[CursorSlice]
}

// ParentStateAware is implemented by routers that keep their own progress,
// for instance a substream router that tracks how far it paged the parent.
// Its state travels in PersistedState.ParentState.
type ParentStateAware interface {
	ParentState() State
	SetParentState(state State) error
}

// RecordFilter is implemented by cursors able to tell whether a record still
// falls inside the sync window.
type RecordFilter interface {
	ShouldBeSynced(record Record) bool
}
