package incremental

import (
	"context"
	"iter"

	"go.uber.org/zap"

	"github.com/ajitpratap0/partsync/pkg/errors"
	"github.com/ajitpratap0/partsync/pkg/logger"
	"github.com/ajitpratap0/partsync/pkg/metrics"
)

// Request option names used in errors and logs.
const (
	OptionParams   = "params"
	OptionHeaders  = "headers"
	OptionBodyData = "body_data"
	OptionBodyJSON = "body_json"
)

// PerPartitionCursor keeps one cursor per partition of a stream so that
// partitions visited in any order, in this run or the next, neither lose nor
// duplicate records. It drives the router, creates or reuses a cursor for
// every partition through the factory, emits composite slices, routes state
// updates and assembles the checkpoint.
//
// A PerPartitionCursor is not safe for concurrent use. Callers fanning
// partitions out across goroutines must serialize access with their own lock.
type PerPartitionCursor struct {
	stream  string
	router  PartitionRouter
	factory *CursorFactory

	// registry, keyed by canonical partition key; order is registration order
	cursors map[string]Cursor
	order   []string

	started bool
	logger  *zap.Logger
}

// NewPerPartitionCursor creates an orchestrator for stream with an empty registry.
func NewPerPartitionCursor(stream string, router PartitionRouter, factory *CursorFactory) *PerPartitionCursor {
	return &PerPartitionCursor{
		stream:  stream,
		router:  router,
		factory: factory,
		cursors: make(map[string]Cursor),
		logger: logger.Get().With(
			zap.String("component", "per_partition_cursor"),
			zap.String("stream", stream),
		),
	}
}

// Stream returns the stream name.
func (c *PerPartitionCursor) Stream() string {
	return c.stream
}

// Len returns the number of registered partitions.
func (c *PerPartitionCursor) Len() int {
	return len(c.order)
}

// Partitions returns the registered partitions in registration order.
func (c *PerPartitionCursor) Partitions() ([]Partition, error) {
	out := make([]Partition, 0, len(c.order))
	for _, key := range c.order {
		p, err := FromKey(key)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// SetInitialState seeds the registry from a checkpoint. A nil or empty state
// is a no-op. Every entry must carry a partition and a cursor; the whole
// state is validated before anything is registered. It must be called, if at
// all, before StreamSlices starts.
func (c *PerPartitionCursor) SetInitialState(state *PersistedState) error {
	if c.started {
		return errors.Wrap(ErrAlreadyStarted, errors.ErrorTypeContract,
			"initial state must be set before slices are streamed").
			WithDetail("stream", c.stream)
	}
	if state.IsEmpty() {
		return nil
	}

	for i, entry := range state.States {
		if entry.Partition == nil {
			return newMalformedStateError(i, `missing "partition"`)
		}
		if entry.Cursor == nil {
			return newMalformedStateError(i, `missing "cursor"`)
		}
	}

	keys := make([]string, 0, len(state.States))
	seeded := make(map[string]Cursor, len(state.States))
	for _, entry := range state.States {
		key, err := ToKey(entry.Partition)
		if err != nil {
			return err
		}
		if _, dup := seeded[key]; dup {
			c.logger.Warn("duplicate partition in persisted state, keeping the last entry",
				zap.String("partition", key))
		} else {
			keys = append(keys, key)
		}
		cursor, err := c.newCursor(entry.Cursor)
		if err != nil {
			return err
		}
		seeded[key] = cursor
	}

	if len(state.ParentState) > 0 {
		if aware, ok := c.router.(ParentStateAware); ok {
			if err := aware.SetParentState(state.ParentState.Clone()); err != nil {
				return err
			}
		}
	}

	for _, key := range keys {
		c.register(key, seeded[key], metrics.OriginCheckpoint)
	}
	c.logger.Info("restored partition cursors", zap.Int("partitions", len(keys)))
	return nil
}

// StreamSlices yields composite slices partition by partition in router
// order. A partition seen for the first time gets a cursor with empty state.
// All of a partition's cursor slices are yielded before the router is asked
// for the next partition. The first collaborator error is yielded and ends
// the sequence.
func (c *PerPartitionCursor) StreamSlices(ctx context.Context) iter.Seq2[*CompositeSlice, error] {
	return func(yield func(*CompositeSlice, error) bool) {
		c.started = true

		for partition, err := range c.router.StreamSlices(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}

			cursor, err := c.cursorFor(partition)
			if err != nil {
				yield(nil, err)
				return
			}

			for cursorSlice, err := range cursor.StreamSlices(ctx) {
				if err != nil {
					yield(nil, err)
					return
				}
				slice, err := NewCompositeSlice(partition, cursorSlice)
				if err != nil {
					yield(nil, err)
					return
				}
				metrics.SlicesEmitted.WithLabelValues(c.stream).Inc()
				if !yield(slice, nil) {
					return
				}
			}
		}
	}
}

// UpdateState forwards a record read for slice to its partition's cursor. It
// never registers partitions; an unknown partition is a *PartitionNotFoundError.
func (c *PerPartitionCursor) UpdateState(slice *CompositeSlice, record Record) error {
	if slice == nil {
		return errors.Wrap(ErrMissingSlice, errors.ErrorTypeValidation, "cannot update state without a slice")
	}
	cursor, _, err := c.lookup(slice.partition)
	if err == nil {
		err = cursor.UpdateState(slice.CursorSlice(), record)
	}
	metrics.ObserveStateUpdate(c.stream, err)
	return err
}

// GetStreamState assembles the checkpoint. Partitions whose cursor reports an
// empty state are left out.
//
// Partitions are rebuilt from their keys, so numeric values come back as
// json.Number rather than the int or float the router yielded. Compare them
// with Partition.Equal instead of type-asserting.
func (c *PerPartitionCursor) GetStreamState() (*PersistedState, error) {
	states := make([]PartitionState, 0, len(c.order))
	for _, key := range c.order {
		cursorState := c.cursors[key].GetStreamState()
		if cursorState.IsEmpty() {
			continue
		}
		partition, err := FromKey(key)
		if err != nil {
			return nil, err
		}
		states = append(states, PartitionState{
			Partition: partition,
			Cursor:    cursorState.Clone(),
		})
	}

	out := &PersistedState{States: states}
	if aware, ok := c.router.(ParentStateAware); ok {
		if parent := aware.ParentState(); len(parent) > 0 {
			out.ParentState = parent.Clone()
		}
	}
	return out, nil
}

// SelectState returns the current state of slice's partition cursor, or nil
// when slice is nil.
func (c *PerPartitionCursor) SelectState(slice *CompositeSlice) (State, error) {
	if slice == nil {
		return nil, nil
	}
	cursor, _, err := c.lookup(slice.partition)
	if err != nil {
		return nil, err
	}
	return cursor.GetStreamState().Clone(), nil
}

// ShouldBeSynced asks the partition cursor whether record is still inside the
// sync window. Cursors that do not implement RecordFilter accept every record.
func (c *PerPartitionCursor) ShouldBeSynced(slice *CompositeSlice, record Record) (bool, error) {
	if slice == nil {
		return false, errors.Wrap(ErrMissingSlice, errors.ErrorTypeValidation, "cannot filter a record without a slice")
	}
	cursor, _, err := c.lookup(slice.partition)
	if err != nil {
		return false, err
	}
	if filter, ok := cursor.(RecordFilter); ok {
		return filter.ShouldBeSynced(record), nil
	}
	return true, nil
}

// RequestParams merges the router's params for the partition with the
// partition cursor's params for the cursor slice.
func (c *PerPartitionCursor) RequestParams(state State, slice *CompositeSlice, token PageToken) (Mapping, error) {
	return c.requestOption(OptionParams, slice,
		func(p Partition) (Mapping, error) { return c.router.RequestParams(state, p, token) },
		func(cur Cursor, cs CursorSlice) (Mapping, error) { return cur.RequestParams(state, cs, token) },
	)
}

// RequestHeaders merges router and cursor headers.
func (c *PerPartitionCursor) RequestHeaders(state State, slice *CompositeSlice, token PageToken) (Mapping, error) {
	return c.requestOption(OptionHeaders, slice,
		func(p Partition) (Mapping, error) { return c.router.RequestHeaders(state, p, token) },
		func(cur Cursor, cs CursorSlice) (Mapping, error) { return cur.RequestHeaders(state, cs, token) },
	)
}

// RequestBodyData merges router and cursor form body fields.
func (c *PerPartitionCursor) RequestBodyData(state State, slice *CompositeSlice, token PageToken) (Mapping, error) {
	return c.requestOption(OptionBodyData, slice,
		func(p Partition) (Mapping, error) { return c.router.RequestBodyData(state, p, token) },
		func(cur Cursor, cs CursorSlice) (Mapping, error) { return cur.RequestBodyData(state, cs, token) },
	)
}

// RequestBodyJSON merges router and cursor JSON body fields.
func (c *PerPartitionCursor) RequestBodyJSON(state State, slice *CompositeSlice, token PageToken) (Mapping, error) {
	return c.requestOption(OptionBodyJSON, slice,
		func(p Partition) (Mapping, error) { return c.router.RequestBodyJSON(state, p, token) },
		func(cur Cursor, cs CursorSlice) (Mapping, error) { return cur.RequestBodyJSON(state, cs, token) },
	)
}

func (c *PerPartitionCursor) requestOption(
	option string,
	slice *CompositeSlice,
	fromRouter func(Partition) (Mapping, error),
	fromCursor func(Cursor, CursorSlice) (Mapping, error),
) (Mapping, error) {
	if slice == nil {
		return nil, errors.Wrap(ErrMissingSlice, errors.ErrorTypeValidation,
			"a partition is required to build request "+option)
	}
	cursor, _, err := c.lookup(slice.partition)
	if err != nil {
		return nil, err
	}
	routerPart, err := fromRouter(slice.Partition())
	if err != nil {
		return nil, err
	}
	cursorPart, err := fromCursor(cursor, slice.CursorSlice())
	if err != nil {
		return nil, err
	}
	return mergeDisjoint(option, routerPart, cursorPart)
}

// mergeDisjoint returns the union of a and b, failing on shared keys.
func mergeDisjoint(option string, a, b Mapping) (Mapping, error) {
	out := make(Mapping, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	var collisions []string
	for k, v := range b {
		if _, ok := out[k]; ok {
			collisions = append(collisions, k)
			continue
		}
		out[k] = v
	}
	if len(collisions) > 0 {
		return nil, newKeyCollisionError(option, collisions)
	}
	return out, nil
}

func (c *PerPartitionCursor) lookup(partition Partition) (Cursor, string, error) {
	key, err := ToKey(partition)
	if err != nil {
		return nil, "", err
	}
	cursor, ok := c.cursors[key]
	if !ok {
		return nil, key, newPartitionNotFoundError(key)
	}
	return cursor, key, nil
}

// cursorFor returns the partition's cursor, registering an empty one on first sight.
func (c *PerPartitionCursor) cursorFor(partition Partition) (Cursor, error) {
	key, err := ToKey(partition)
	if err != nil {
		return nil, err
	}
	if cursor, ok := c.cursors[key]; ok {
		return cursor, nil
	}
	cursor, err := c.newCursor(State{})
	if err != nil {
		return nil, err
	}
	c.register(key, cursor, metrics.OriginStream)
	c.logger.Debug("registered partition cursor", zap.String("partition", key))
	return cursor, nil
}

func (c *PerPartitionCursor) newCursor(state State) (Cursor, error) {
	cursor, err := c.factory.Create()
	if err != nil {
		return nil, err
	}
	if err := cursor.SetInitialState(state.Clone()); err != nil {
		return nil, err
	}
	return cursor, nil
}

func (c *PerPartitionCursor) register(key string, cursor Cursor, origin string) {
	if _, exists := c.cursors[key]; !exists {
		c.order = append(c.order, key)
	}
	c.cursors[key] = cursor
	metrics.PartitionsRegistered.WithLabelValues(c.stream, origin).Inc()
	metrics.ActivePartitions.WithLabelValues(c.stream).Set(float64(len(c.order)))
}
