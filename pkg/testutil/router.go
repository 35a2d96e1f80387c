package testutil

import (
	"context"
	"iter"

	"github.com/ajitpratap0/partsync/pkg/incremental"
)

// StaticRouter yields a fixed list of partitions. Err, when set, is yielded
// after the last partition.
type StaticRouter struct {
	Partitions []incremental.Partition
	Err        error

	Params   incremental.Mapping
	Headers  incremental.Mapping
	BodyData incremental.Mapping
	BodyJSON incremental.Mapping

	// Enumerations counts StreamSlices calls that started iterating.
	Enumerations int
}

// NewStaticRouter returns a router over partitions.
func NewStaticRouter(partitions ...incremental.Partition) *StaticRouter {
	return &StaticRouter{Partitions: partitions}
}

// StreamSlices yields the partitions in order.
func (r *StaticRouter) StreamSlices(ctx context.Context) iter.Seq2[incremental.Partition, error] {
	return func(yield func(incremental.Partition, error) bool) {
		r.Enumerations++
		for _, p := range r.Partitions {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(p.Clone(), nil) {
				return
			}
		}
		if r.Err != nil {
			yield(nil, r.Err)
		}
	}
}

// RequestParams returns a copy of Params.
func (r *StaticRouter) RequestParams(_ incremental.State, _ incremental.Partition, _ incremental.PageToken) (incremental.Mapping, error) {
	return copyMapping(r.Params), nil
}

// RequestHeaders returns a copy of Headers.
func (r *StaticRouter) RequestHeaders(_ incremental.State, _ incremental.Partition, _ incremental.PageToken) (incremental.Mapping, error) {
	return copyMapping(r.Headers), nil
}

// RequestBodyData returns a copy of BodyData.
func (r *StaticRouter) RequestBodyData(_ incremental.State, _ incremental.Partition, _ incremental.PageToken) (incremental.Mapping, error) {
	return copyMapping(r.BodyData), nil
}

// RequestBodyJSON returns a copy of BodyJSON.
func (r *StaticRouter) RequestBodyJSON(_ incremental.State, _ incremental.Partition, _ incremental.PageToken) (incremental.Mapping, error) {
	return copyMapping(r.BodyJSON), nil
}

// ParentRouter is a StaticRouter that tracks how many partitions it has
// enumerated as its own progress, like a substream router paging a parent.
type ParentRouter struct {
	*StaticRouter
	state    incremental.State
	restored incremental.State
}

// NewParentRouter returns a parent-state-aware router over partitions.
func NewParentRouter(partitions ...incremental.Partition) *ParentRouter {
	return &ParentRouter{StaticRouter: NewStaticRouter(partitions...)}
}

// StreamSlices yields the partitions, recording {"enumerated": n} after each.
func (r *ParentRouter) StreamSlices(ctx context.Context) iter.Seq2[incremental.Partition, error] {
	return func(yield func(incremental.Partition, error) bool) {
		n := 0
		for p, err := range r.StaticRouter.StreamSlices(ctx) {
			if err == nil {
				n++
				r.state = incremental.State{"enumerated": n}
			}
			if !yield(p, err) {
				return
			}
		}
	}
}

// ParentState returns the router's progress.
func (r *ParentRouter) ParentState() incremental.State {
	return r.state.Clone()
}

// SetParentState restores the router's progress.
func (r *ParentRouter) SetParentState(state incremental.State) error {
	r.restored = state.Clone()
	r.state = state.Clone()
	return nil
}

// Restored returns the state passed to SetParentState, if any.
func (r *ParentRouter) Restored() incremental.State {
	return r.restored.Clone()
}

func copyMapping(m incremental.Mapping) incremental.Mapping {
	out := make(incremental.Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
