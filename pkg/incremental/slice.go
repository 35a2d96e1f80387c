package incremental

import (
	"iter"
	"sort"

	jsonpool "github.com/ajitpratap0/partsync/pkg/json"
)

// CompositeSlice is the read-only merge of a partition and one of its cursor
// slices. The two key sets are disjoint, so the flattened view is unambiguous.
// A CompositeSlice has no mutating methods; accessors return copies.
type CompositeSlice struct {
	partition   Partition
	cursorSlice CursorSlice
}

// NewCompositeSlice builds a composite slice. It fails with an
// *OverlappingKeysError when partition and cursorSlice share any key.
func NewCompositeSlice(partition Partition, cursorSlice CursorSlice) (*CompositeSlice, error) {
	var overlap []string
	for k := range cursorSlice {
		if _, ok := partition[k]; ok {
			overlap = append(overlap, k)
		}
	}
	if len(overlap) > 0 {
		return nil, newOverlappingKeysError(overlap)
	}

	p := partition.Clone()
	if p == nil {
		p = Partition{}
	}
	cs := cursorSlice.Clone()
	if cs == nil {
		cs = CursorSlice{}
	}
	return &CompositeSlice{partition: p, cursorSlice: cs}, nil
}

// Partition returns a copy of the partition part.
func (s *CompositeSlice) Partition() Partition {
	return s.partition.Clone()
}

// CursorSlice returns a copy of the cursor slice part.
func (s *CompositeSlice) CursorSlice() CursorSlice {
	return s.cursorSlice.Clone()
}

// Get returns the value stored under key in either part.
func (s *CompositeSlice) Get(key string) (interface{}, bool) {
	if v, ok := s.partition[key]; ok {
		return cloneValue(v), true
	}
	if v, ok := s.cursorSlice[key]; ok {
		return cloneValue(v), true
	}
	return nil, false
}

// Has reports whether key is present in either part.
func (s *CompositeSlice) Has(key string) bool {
	_, inPartition := s.partition[key]
	_, inSlice := s.cursorSlice[key]
	return inPartition || inSlice
}

// Len returns the number of keys in the flattened view.
func (s *CompositeSlice) Len() int {
	return len(s.partition) + len(s.cursorSlice)
}

// Keys returns the flattened key set, sorted.
func (s *CompositeSlice) Keys() []string {
	keys := make([]string, 0, s.Len())
	for k := range s.partition {
		keys = append(keys, k)
	}
	for k := range s.cursorSlice {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// All iterates the flattened view in sorted key order.
func (s *CompositeSlice) All() iter.Seq2[string, interface{}] {
	return func(yield func(string, interface{}) bool) {
		for _, k := range s.Keys() {
			v, _ := s.Get(k)
			if !yield(k, v) {
				return
			}
		}
	}
}

// ToMap returns the flattened view as a fresh map.
func (s *CompositeSlice) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, s.Len())
	for k, v := range s.partition {
		out[k] = cloneValue(v)
	}
	for k, v := range s.cursorSlice {
		out[k] = cloneValue(v)
	}
	return out
}

// Equal reports whether both parts are respectively equal. Two slices that
// flatten to the same map but split it differently are not equal.
func (s *CompositeSlice) Equal(other *CompositeSlice) bool {
	if s == nil || other == nil {
		return s == other
	}
	return canonicalEqual(s.partition, other.partition) &&
		canonicalEqual(s.cursorSlice, other.cursorSlice)
}

// String renders the slice as {"partition":...,"cursor_slice":...}.
func (s *CompositeSlice) String() string {
	data, err := jsonpool.MarshalCanonical(map[string]interface{}{
		"partition":    map[string]interface{}(s.partition),
		"cursor_slice": map[string]interface{}(s.cursorSlice),
	})
	if err != nil {
		return "CompositeSlice{<unencodable>}"
	}
	return string(data)
}
