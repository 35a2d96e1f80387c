// Package json provides JSON serialization for partition keys and checkpoints
// on top of goccy/go-json, with pooled buffers and a canonical encoding.
package json

import (
	"bytes"
	"errors"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

// Number is the literal-preserving number type produced by decoders in this package.
type Number = gojson.Number

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// getBuffer gets a pooled bytes.Buffer
func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// putBuffer returns a buffer to the pool
func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 1024*1024 { // Don't pool very large buffers
		return
	}
	bufferPool.Put(buf)
}

// Marshal is a drop-in replacement for json.Marshal
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal is a drop-in replacement for json.Unmarshal
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// MarshalIndent is a drop-in replacement for json.MarshalIndent
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return gojson.MarshalIndent(v, prefix, indent)
}

// MarshalCanonical encodes v with map keys sorted at every depth, compact
// separators and no HTML escaping. Two logically equal maps always produce
// byte-identical output regardless of insertion order or process. The
// returned slice is owned by the caller.
func MarshalCanonical(v interface{}) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	enc := gojson.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.Clone(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// ErrNotObject is returned by DecodeObject when the input is valid JSON but not an object.
var ErrNotObject = errors.New("json: value is not an object")

// ErrTrailingData is returned by DecodeObject when input continues after the first value.
var ErrTrailingData = errors.New("json: unexpected data after top-level value")

// DecodeObject decodes a single JSON object, keeping numbers as Number so
// that re-encoding reproduces the original literal.
func DecodeObject(data []byte) (map[string]interface{}, error) {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out map[string]interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, ErrNotObject
	}

	var extra interface{}
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}
	return out, nil
}

// MarshalToWriter writes v to w as compact JSON without HTML escaping,
// followed by a newline.
func MarshalToWriter(w io.Writer, v interface{}) error {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
