package incremental_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/partsync/pkg/errors"
	"github.com/ajitpratap0/partsync/pkg/incremental"
	jsonpool "github.com/ajitpratap0/partsync/pkg/json"
)

func TestParsePersistedState(t *testing.T) {
	raw, err := jsonpool.DecodeObject([]byte(`{
		"states": [
			{"partition": {"id": "1"}, "cursor": {"updated_at": "2024-01-10"}},
			{"partition": {"id": 2}, "cursor": {"updated_at": "2024-02-01"}, "extra": true}
		],
		"parent_state": {"page": 3}
	}`))
	require.NoError(t, err)

	state, err := incremental.ParsePersistedState(raw)
	require.NoError(t, err)
	require.Len(t, state.States, 2)

	cur, ok := state.Find(incremental.Partition{"id": "1"})
	require.True(t, ok)
	assert.Equal(t, "2024-01-10", cur["updated_at"])

	cur, ok = state.Find(incremental.Partition{"id": 2})
	require.True(t, ok)
	assert.Equal(t, "2024-02-01", cur["updated_at"])

	_, ok = state.Find(incremental.Partition{"id": "3"})
	assert.False(t, ok)

	assert.Equal(t, jsonpool.Number("3"), state.ParentState["page"])
}

func TestParsePersistedStateEmpty(t *testing.T) {
	for _, raw := range []map[string]interface{}{nil, {}} {
		state, err := incremental.ParsePersistedState(raw)
		require.NoError(t, err)
		assert.True(t, state.IsEmpty())
	}

	state, err := incremental.ParsePersistedState(map[string]interface{}{"states": []interface{}{}})
	require.NoError(t, err)
	assert.True(t, state.IsEmpty())
}

func TestParsePersistedStateMalformed(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		index int
	}{
		{name: "missing states", raw: `{"partitions": []}`, index: -1},
		{name: "states not a list", raw: `{"states": {"id": 1}}`, index: -1},
		{name: "entry not an object", raw: `{"states": [1]}`, index: 0},
		{name: "missing partition", raw: `{"states": [{"partition": {"id": 1}, "cursor": {}}, {"cursor": {}}]}`, index: 1},
		{name: "missing cursor", raw: `{"states": [{"partition": {"id": 1}}]}`, index: 0},
		{name: "partition not an object", raw: `{"states": [{"partition": "a", "cursor": {}}]}`, index: 0},
		{name: "parent state not an object", raw: `{"states": [], "parent_state": [1]}`, index: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := jsonpool.DecodeObject([]byte(tt.raw))
			require.NoError(t, err)

			_, err = incremental.ParsePersistedState(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, incremental.ErrMalformedState)
			assert.True(t, errors.IsType(err, errors.ErrorTypeData))

			var malformed *incremental.MalformedStateError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, tt.index, malformed.Index)
		})
	}
}

func TestPersistedStateToMap(t *testing.T) {
	state := &incremental.PersistedState{
		States: []incremental.PartitionState{
			{Partition: incremental.Partition{"p": "A"}, Cursor: incremental.State{"v": 1}},
		},
	}
	assert.Equal(t, map[string]interface{}{
		"states": []interface{}{
			map[string]interface{}{
				"partition": map[string]interface{}{"p": "A"},
				"cursor":    map[string]interface{}{"v": 1},
			},
		},
	}, state.ToMap())

	state.ParentState = incremental.State{"page": 2}
	assert.Equal(t, map[string]interface{}{"page": 2}, state.ToMap()["parent_state"])

	parsed, err := incremental.ParsePersistedState(state.ToMap())
	require.NoError(t, err)
	assert.Equal(t, state, parsed)
}
