// Package strings provides pooled string builders used when formatting
// error messages, partition keys and checkpoint frames.
package strings

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"
)

// BytesToString converts byte slice to string without allocation.
// The returned string shares memory with b; b must not be modified afterwards.
func BytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// Builder provides efficient string building backed by a reusable byte slice.
type Builder struct {
	buf []byte
}

// newBuilder creates a new string builder
func newBuilder(capacity int) *Builder {
	return &Builder{
		buf: make([]byte, 0, capacity),
	}
}

// WriteString appends a string to the builder
func (b *Builder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// WriteByte appends a single byte to the builder
func (b *Builder) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// Write implements io.Writer
func (b *Builder) Write(p []byte) (n int, err error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// String returns the accumulated string. It shares memory with the builder.
func (b *Builder) String() string {
	return BytesToString(b.buf)
}

// Bytes returns the accumulated bytes
func (b *Builder) Bytes() []byte {
	return b.buf
}

// Len returns the current length
func (b *Builder) Len() int {
	return len(b.buf)
}

// Reset clears the builder while keeping its capacity
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
}

// Clone returns a copy of s that does not share memory with any builder.
func Clone(s string) string {
	return strings.Clone(s)
}

var (
	// Small strings (< 1KB) - error messages, partition keys
	smallBuilderPool = &sync.Pool{
		New: func() interface{} {
			return newBuilder(1024)
		},
	}

	// Medium strings (1KB - 16KB) - checkpoint frames for modest partition counts
	mediumBuilderPool = &sync.Pool{
		New: func() interface{} {
			return newBuilder(16 * 1024)
		},
	}

	// Large strings (16KB+) - checkpoints with many partitions
	largeBuilderPool = &sync.Pool{
		New: func() interface{} {
			return newBuilder(64 * 1024)
		},
	}
)

// BuilderSize represents different builder sizes
type BuilderSize int

const (
	Small  BuilderSize = iota // < 1KB
	Medium                    // 1KB - 16KB
	Large                     // 16KB+
)

func poolFor(size BuilderSize) *sync.Pool {
	switch size {
	case Medium:
		return mediumBuilderPool
	case Large:
		return largeBuilderPool
	default:
		return smallBuilderPool
	}
}

// SizeFor picks the pool bucket for an expected output length.
func SizeFor(n int) BuilderSize {
	switch {
	case n > 16*1024:
		return Large
	case n > 1024:
		return Medium
	default:
		return Small
	}
}

// GetBuilder retrieves a pooled builder of the specified size
func GetBuilder(size BuilderSize) *Builder {
	builder := poolFor(size).Get().(*Builder)
	builder.Reset()
	return builder
}

// PutBuilder returns a builder to the appropriate pool
func PutBuilder(builder *Builder, size BuilderSize) {
	if builder == nil {
		return
	}
	builder.Reset()
	poolFor(size).Put(builder)
}

// Sprintf provides a pooled alternative to fmt.Sprintf
func Sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}

	size := SizeFor(len(format) + len(args)*16)
	builder := GetBuilder(size)
	defer PutBuilder(builder, size)

	fmt.Fprintf(builder, format, args...)

	return Clone(builder.String())
}

// JoinPooled efficiently joins strings using pooled builder
func JoinPooled(parts []string, delimiter string) string {
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return parts[0]
	}

	totalLen := (len(parts) - 1) * len(delimiter)
	for _, s := range parts {
		totalLen += len(s)
	}

	size := SizeFor(totalLen)
	builder := GetBuilder(size)
	defer PutBuilder(builder, size)

	builder.WriteString(parts[0])
	for i := 1; i < len(parts); i++ {
		builder.WriteString(delimiter)
		builder.WriteString(parts[i])
	}

	return Clone(builder.String())
}
