// Package incremental implements per-partition incremental cursoring for
// fan-out streams.
//
// A fan-out stream reads the same endpoint once per partition, for example
// once per account returned by a parent API. A single cursor for the whole
// stream would either re-read or skip records whenever partitions are visited
// in a different order between runs. PerPartitionCursor keeps one Cursor per
// partition instead:
//
//	factory := incremental.NewCursorFactory(incremental.CursorConstructorFunc(newDateCursor))
//	pc := incremental.NewPerPartitionCursor("tickets", router, factory)
//	if err := pc.SetInitialState(restored); err != nil {
//	    return err
//	}
//	for slice, err := range pc.StreamSlices(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    for _, rec := range read(slice) {
//	        if err := pc.UpdateState(slice, rec); err != nil {
//	            return err
//	        }
//	    }
//	}
//	checkpoint, err := pc.GetStreamState()
//
// # Partition keys
//
// Partitions are identified by a canonical key, the compact JSON encoding of
// the partition with object keys sorted. ToKey and FromKey round-trip, and
// two partitions with the same fields produce the same key regardless of map
// iteration order.
//
// # Checkpoint layout
//
//	{"states": [{"partition": {"id": "1"}, "cursor": {"updated_at": "2024-01-10"}}],
//	 "parent_state": {...}}
//
// Partitions whose cursor state is empty are omitted. parent_state is only
// present when the router implements ParentStateAware and reports progress.
//
// # Concurrency
//
// PerPartitionCursor holds no locks. Callers that process slices from several
// goroutines must serialize calls into it.
package incremental
