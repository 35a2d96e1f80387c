package incremental_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/partsync/pkg/errors"
	"github.com/ajitpratap0/partsync/pkg/incremental"
)

func TestNewCompositeSliceRejectsOverlap(t *testing.T) {
	_, err := incremental.NewCompositeSlice(
		incremental.Partition{"id": 1, "region": "eu"},
		incremental.CursorSlice{"id": 2, "region": "us", "start": "2024-01-01"},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, incremental.ErrOverlappingKeys)
	assert.True(t, errors.IsType(err, errors.ErrorTypeContract))

	var overlap *incremental.OverlappingKeysError
	require.ErrorAs(t, err, &overlap)
	assert.Equal(t, []string{"id", "region"}, overlap.Keys)
}

func TestCompositeSliceView(t *testing.T) {
	s, err := incremental.NewCompositeSlice(
		incremental.Partition{"account_id": "42"},
		incremental.CursorSlice{"start": "2024-01-01", "end": "2024-01-31"},
	)
	require.NoError(t, err)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{"account_id", "end", "start"}, s.Keys())
	assert.True(t, s.Has("account_id"))
	assert.True(t, s.Has("start"))
	assert.False(t, s.Has("missing"))

	v, ok := s.Get("account_id")
	require.True(t, ok)
	assert.Equal(t, "42", v)
	_, ok = s.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, map[string]interface{}{
		"account_id": "42",
		"start":      "2024-01-01",
		"end":        "2024-01-31",
	}, s.ToMap())

	var keys []string
	for k := range s.All() {
		keys = append(keys, k)
	}
	assert.Equal(t, s.Keys(), keys)

	assert.Equal(t, `{"cursor_slice":{"end":"2024-01-31","start":"2024-01-01"},"partition":{"account_id":"42"}}`, s.String())
}

func TestCompositeSliceIsImmutable(t *testing.T) {
	partition := incremental.Partition{"id": "1", "meta": map[string]interface{}{"tier": "gold"}}
	cursorSlice := incremental.CursorSlice{"start": "2024-01-01"}

	s, err := incremental.NewCompositeSlice(partition, cursorSlice)
	require.NoError(t, err)

	partition["id"] = "2"
	partition["meta"].(map[string]interface{})["tier"] = "silver"
	cursorSlice["start"] = "1999-01-01"

	got := s.Partition()
	assert.Equal(t, "1", got["id"])
	assert.Equal(t, "gold", got["meta"].(map[string]interface{})["tier"])
	assert.Equal(t, "2024-01-01", s.CursorSlice()["start"])

	got["id"] = "3"
	s.ToMap()["start"] = "x"
	assert.Equal(t, "1", s.Partition()["id"])
	assert.Equal(t, "2024-01-01", s.CursorSlice()["start"])
}

func TestCompositeSliceEqual(t *testing.T) {
	newSlice := func(p incremental.Partition, cs incremental.CursorSlice) *incremental.CompositeSlice {
		s, err := incremental.NewCompositeSlice(p, cs)
		require.NoError(t, err)
		return s
	}

	a := newSlice(incremental.Partition{"p": "A"}, incremental.CursorSlice{"s": 1})
	assert.True(t, a.Equal(newSlice(incremental.Partition{"p": "A"}, incremental.CursorSlice{"s": int64(1)})))
	assert.False(t, a.Equal(newSlice(incremental.Partition{"p": "B"}, incremental.CursorSlice{"s": 1})))
	assert.False(t, a.Equal(newSlice(incremental.Partition{"p": "A"}, incremental.CursorSlice{"s": 2})))

	// same flattened view, different split
	split := newSlice(incremental.Partition{"p": "A", "s": 1}, nil)
	assert.Equal(t, a.ToMap(), split.ToMap())
	assert.False(t, a.Equal(split))

	assert.False(t, a.Equal(nil))
	var nilSlice *incremental.CompositeSlice
	assert.True(t, nilSlice.Equal(nil))
}

func TestCompositeSliceEmptyParts(t *testing.T) {
	s, err := incremental.NewCompositeSlice(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Keys())
	assert.NotNil(t, s.Partition())
	assert.NotNil(t, s.CursorSlice())
}
