package incremental

// PartitionState is one partition's entry in a checkpoint.
type PartitionState struct {
	Partition Partition `json:"partition"`
	Cursor    State     `json:"cursor"`
}

// PersistedState is the checkpoint exchanged with the persistence boundary:
//
//	{"states": [{"partition": {...}, "cursor": {...}}, ...], "parent_state": {...}}
//
// Entry order is not significant.
type PersistedState struct {
	States      []PartitionState `json:"states"`
	ParentState State            `json:"parent_state,omitempty"`
}

// IsEmpty reports whether the state carries nothing to restore.
func (s *PersistedState) IsEmpty() bool {
	return s == nil || (len(s.States) == 0 && len(s.ParentState) == 0)
}

// Find returns the cursor state recorded for partition.
func (s *PersistedState) Find(partition Partition) (State, bool) {
	if s == nil {
		return nil, false
	}
	for _, entry := range s.States {
		if entry.Partition.Equal(partition) {
			return entry.Cursor, true
		}
	}
	return nil, false
}

// ToMap renders the state in its JSON-compatible map form.
func (s *PersistedState) ToMap() map[string]interface{} {
	states := make([]interface{}, 0, len(s.States))
	for _, entry := range s.States {
		states = append(states, map[string]interface{}{
			"partition": map[string]interface{}(entry.Partition.Clone()),
			"cursor":    map[string]interface{}(entry.Cursor.Clone()),
		})
	}
	out := map[string]interface{}{"states": states}
	if len(s.ParentState) > 0 {
		out["parent_state"] = map[string]interface{}(s.ParentState.Clone())
	}
	return out
}

// ParsePersistedState validates a decoded checkpoint map and converts it. An
// empty or nil map yields an empty state. Anything else must carry a "states"
// list whose entries all have "partition" and "cursor" objects; the first
// violation is returned as a *MalformedStateError.
func ParsePersistedState(raw map[string]interface{}) (*PersistedState, error) {
	if len(raw) == 0 {
		return &PersistedState{}, nil
	}

	rawStates, ok := raw["states"]
	if !ok {
		return nil, newMalformedStateError(-1, `missing "states"`)
	}
	list, ok := rawStates.([]interface{})
	if !ok && rawStates != nil {
		return nil, newMalformedStateError(-1, `"states" is not a list`)
	}

	out := &PersistedState{States: make([]PartitionState, 0, len(list))}
	for i, item := range list {
		entry, ok := asMap(item)
		if !ok {
			return nil, newMalformedStateError(i, "entry is not an object")
		}
		partition, ok := asMap(entry["partition"])
		if !ok {
			return nil, newMalformedStateError(i, `missing "partition" object`)
		}
		cursor, ok := asMap(entry["cursor"])
		if !ok {
			return nil, newMalformedStateError(i, `missing "cursor" object`)
		}
		out.States = append(out.States, PartitionState{
			Partition: Partition(cloneMap(partition)),
			Cursor:    State(cloneMap(cursor)),
		})
	}

	if rawParent, ok := raw["parent_state"]; ok && rawParent != nil {
		parent, ok := asMap(rawParent)
		if !ok {
			return nil, newMalformedStateError(-1, `"parent_state" is not an object`)
		}
		out.ParentState = State(cloneMap(parent))
	}
	return out, nil
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch tv := v.(type) {
	case map[string]interface{}:
		return tv, tv != nil
	case Partition:
		return tv, tv != nil
	case State:
		return tv, tv != nil
	case CursorSlice:
		return tv, tv != nil
	default:
		return nil, false
	}
}
