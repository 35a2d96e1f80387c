package json

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	a := map[string]interface{}{"b": 2, "a": 1, "c": map[string]interface{}{"z": true, "y": "x"}}
	b := map[string]interface{}{"c": map[string]interface{}{"y": "x", "z": true}, "a": 1, "b": 2}

	encA, err := MarshalCanonical(a)
	require.NoError(t, err)
	encB, err := MarshalCanonical(b)
	require.NoError(t, err)

	assert.Equal(t, `{"a":1,"b":2,"c":{"y":"x","z":true}}`, string(encA))
	assert.Equal(t, encA, encB)
}

func TestMarshalCanonical_NoHTMLEscape(t *testing.T) {
	enc, err := MarshalCanonical(map[string]interface{}{"q": "a<b&c"})
	require.NoError(t, err)
	assert.Equal(t, `{"q":"a<b&c"}`, string(enc))
}

func TestMarshalCanonical_NoHTMLEscapeNested(t *testing.T) {
	enc, err := MarshalCanonical(map[string]interface{}{
		"b": []interface{}{"<&>"},
		"a": map[string]interface{}{"<k>": "&"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"<k>":"&"},"b":["<&>"]}`, string(enc))
}

func TestMarshalCanonical_ResultOwnedByCaller(t *testing.T) {
	first, err := MarshalCanonical(map[string]interface{}{"id": "first"})
	require.NoError(t, err)
	_, err = MarshalCanonical(map[string]interface{}{"id": "second-and-longer"})
	require.NoError(t, err)
	assert.Equal(t, `{"id":"first"}`, string(first))
}

func TestDecodeObject_PreservesNumbers(t *testing.T) {
	in := `{"big":12345678901234567890,"f":1.50,"s":"x"}`
	out, err := DecodeObject([]byte(in))
	require.NoError(t, err)

	assert.Equal(t, Number("12345678901234567890"), out["big"])
	assert.Equal(t, Number("1.50"), out["f"])
	assert.Equal(t, "x", out["s"])

	again, err := MarshalCanonical(out)
	require.NoError(t, err)
	assert.Equal(t, in, string(again))
}

func TestDecodeObject_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ``},
		{"null", `null`},
		{"array", `[1,2]`},
		{"string", `"x"`},
		{"truncated", `{"a":`},
		{"trailing", `{"a":1}{"b":2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeObject([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestBufferPool(t *testing.T) {
	buf := getBuffer()
	buf.WriteString("data")
	putBuffer(buf)

	again := getBuffer()
	defer putBuffer(again)
	assert.Equal(t, 0, again.Len())
}

func TestMarshalToWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, MarshalToWriter(&buf, map[string]interface{}{"k": "<v>"}))
	assert.Equal(t, "{\"k\":\"<v>\"}\n", buf.String())
}
