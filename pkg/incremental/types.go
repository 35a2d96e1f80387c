package incremental

// Partition identifies one sub-stream of a fan-out source, e.g.
// {"account_id": "42"}. Values must be JSON-serializable. A partition is
// treated as immutable once the router yields it.
type Partition map[string]interface{}

// CursorSlice describes one unit of work inside a partition, e.g.
// {"start": "2024-01-01", "end": "2024-01-31"}.
type CursorSlice map[string]interface{}

// State is the opaque progress of a single partition cursor.
type State map[string]interface{}

// Record is a record read for a slice, passed back through UpdateState.
type Record map[string]interface{}

// PageToken is the pagination token of the request being shaped.
type PageToken map[string]interface{}

// Mapping is a request-shaping contribution (params, headers or body fields).
type Mapping map[string]interface{}

// Key returns the canonical partition key.
func (p Partition) Key() (string, error) {
	return ToKey(p)
}

// Equal reports whether p and other are the same partition. Equality is
// defined on canonical keys, so {"id": 1} equals {"id": int64(1)} and a
// partition decoded from a checkpoint equals the one the router produced.
func (p Partition) Equal(other Partition) bool {
	return canonicalEqual(map[string]interface{}(p), map[string]interface{}(other))
}

// Clone returns a deep copy of p.
func (p Partition) Clone() Partition {
	if p == nil {
		return nil
	}
	return Partition(cloneMap(p))
}

// Clone returns a deep copy of s.
func (s CursorSlice) Clone() CursorSlice {
	if s == nil {
		return nil
	}
	return CursorSlice(cloneMap(s))
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	return State(cloneMap(s))
}

// IsEmpty reports whether the state carries no progress.
func (s State) IsEmpty() bool {
	return len(s) == 0
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch tv := v.(type) {
	case map[string]interface{}:
		return cloneMap(tv)
	case Partition:
		return Partition(cloneMap(tv))
	case CursorSlice:
		return CursorSlice(cloneMap(tv))
	case State:
		return State(cloneMap(tv))
	case []interface{}:
		out := make([]interface{}, len(tv))
		for i, item := range tv {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
