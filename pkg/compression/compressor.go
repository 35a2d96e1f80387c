// Package compression compresses checkpoint blobs. It supports Gzip, Snappy,
// S2, LZ4, Zstd and Deflate at four levels, pools the expensive encoders and
// caps the decompressed size so a corrupted or hostile blob cannot exhaust
// memory.
//
// # Basic Usage
//
//	pool, err := compression.NewCompressorPool(&compression.Config{
//	    Algorithm: compression.Zstd,
//	    Level:     compression.Default,
//	})
//	comp := pool.Get()
//	defer pool.Put(comp)
//	compressed, err := comp.Compress(data)
//	original, err := comp.Decompress(compressed)
//
// # Algorithm Selection
//
//   - Zstd: best ratio for the repetitive JSON of large checkpoints
//   - LZ4, Snappy, S2: fastest, for frequent checkpoints of small states
//   - Gzip, Deflate: readable with standard tools
package compression

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"io"
	"sync"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/partsync/pkg/errors"
	stringpool "github.com/ajitpratap0/partsync/pkg/strings"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 frame compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
	// Deflate represents raw deflate compression
	Deflate Algorithm = "deflate"
)

// Algorithms lists every supported algorithm.
var Algorithms = []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2, Deflate}

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

// DefaultMaxDecompressedSize caps Decompress output when Config leaves it unset.
const DefaultMaxDecompressedSize = 256 << 20

// ErrTooLarge is the cause of decompression errors for output above the limit.
var ErrTooLarge = errors.New(errors.ErrorTypeData, "decompressed data exceeds size limit")

// ParseAlgorithm maps a configuration string to an Algorithm. The empty
// string means None.
func ParseAlgorithm(s string) (Algorithm, error) {
	if s == "" {
		return None, nil
	}
	for _, a := range Algorithms {
		if string(a) == s {
			return a, nil
		}
	}
	return "", errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm: %s", s)
}

// ParseLevel maps fastest, default, better or best to a Level. The empty
// string means Default.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "", "default":
		return Default, nil
	case "fastest":
		return Fastest, nil
	case "better":
		return Better, nil
	case "best":
		return Best, nil
	default:
		return 0, errors.Newf(errors.ErrorTypeConfig, "unsupported compression level: %s", s)
	}
}

// Compressor compresses and decompresses whole blobs.
// All implementations are safe for concurrent use.
type Compressor interface {
	// Compress returns the compressed form of data. data is not modified.
	Compress(data []byte) ([]byte, error)

	// Decompress returns the original bytes. It fails once the output would
	// exceed the configured size limit.
	Decompress(data []byte) ([]byte, error)

	// Algorithm returns the compression algorithm used.
	Algorithm() Algorithm

	// Level returns the compression level configured.
	Level() Level
}

// Config represents compressor configuration.
type Config struct {
	Algorithm Algorithm
	Level     Level
	// MaxDecompressedSize bounds Decompress output; 0 means DefaultMaxDecompressedSize
	MaxDecompressedSize int64
}

// defaultConfig is the checkpoint default: Zstd at the default level.
func defaultConfig() *Config {
	return &Config{
		Algorithm:           Zstd,
		Level:               Default,
		MaxDecompressedSize: DefaultMaxDecompressedSize,
	}
}

// newCompressor creates a compressor for config. A nil config uses defaultConfig.
func newCompressor(config *Config) (Compressor, error) {
	if config == nil {
		config = defaultConfig()
	}
	base := baseCompressor{
		algorithm: config.Algorithm,
		level:     config.Level,
		limit:     config.MaxDecompressedSize,
	}
	if base.limit <= 0 {
		base.limit = DefaultMaxDecompressedSize
	}

	switch config.Algorithm {
	case None:
		return &noneCompressor{baseCompressor: base}, nil
	case Gzip:
		return newGzipCompressor(base), nil
	case Snappy:
		return &snappyCompressor{baseCompressor: base}, nil
	case LZ4:
		return &lz4Compressor{baseCompressor: base, compressionLevel: mapLZ4Level(config.Level)}, nil
	case Zstd:
		return newZstdCompressor(base)
	case S2:
		return &s2Compressor{baseCompressor: base}, nil
	case Deflate:
		return &deflateCompressor{baseCompressor: base, flateLevel: mapDeflateLevel(config.Level)}, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm: %s", config.Algorithm)
	}
}

// CompressorPool hands out compressors of one configuration. Compressors are
// already safe for concurrent use; the pool keeps one warm instance per
// goroutine for the pooled zstd and gzip state.
type CompressorPool struct {
	pool   sync.Pool
	config *Config
}

// NewCompressorPool validates config and returns a pool for it.
func NewCompressorPool(config *Config) (*CompressorPool, error) {
	if config == nil {
		config = defaultConfig()
	}
	first, err := newCompressor(config)
	if err != nil {
		return nil, err
	}

	cp := &CompressorPool{config: config}
	cp.pool.New = func() interface{} {
		comp, err := newCompressor(cp.config)
		if err != nil {
			return nil
		}
		return comp
	}
	cp.pool.Put(first)
	return cp, nil
}

// Get gets a compressor from pool
func (cp *CompressorPool) Get() Compressor {
	if c, ok := cp.pool.Get().(Compressor); ok {
		return c
	}
	c, _ := newCompressor(cp.config)
	return c
}

// Put returns compressor to pool
func (cp *CompressorPool) Put(c Compressor) {
	cp.pool.Put(c)
}

// Compress compresses data using a pooled compressor
func (cp *CompressorPool) Compress(data []byte) ([]byte, error) {
	c := cp.Get()
	defer cp.Put(c)
	return c.Compress(data)
}

// Decompress decompresses data using a pooled compressor
func (cp *CompressorPool) Decompress(data []byte) ([]byte, error) {
	c := cp.Get()
	defer cp.Put(c)
	return c.Decompress(data)
}

// Algorithm returns the pool's algorithm.
func (cp *CompressorPool) Algorithm() Algorithm {
	return cp.config.Algorithm
}

type baseCompressor struct {
	algorithm Algorithm
	level     Level
	limit     int64
}

// Algorithm returns the compression algorithm
func (bc *baseCompressor) Algorithm() Algorithm {
	return bc.algorithm
}

// Level returns the compression level
func (bc *baseCompressor) Level() Level {
	return bc.level
}

// readLimited drains r into a fresh slice, failing past the size limit.
func (bc *baseCompressor) readLimited(r io.Reader) ([]byte, error) {
	builder := stringpool.GetBuilder(stringpool.Medium)
	defer stringpool.PutBuilder(builder, stringpool.Medium)

	n, err := io.Copy(builder, io.LimitReader(r, bc.limit+1))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, string(bc.algorithm)+" decompression failed")
	}
	if n > bc.limit {
		return nil, errors.Wrap(ErrTooLarge, errors.ErrorTypeData, string(bc.algorithm)+" decompression failed").
			WithDetail("limit", bc.limit)
	}

	result := make([]byte, builder.Len())
	copy(result, builder.Bytes())
	return result, nil
}

// checkLen guards block formats whose header carries the decoded length.
func (bc *baseCompressor) checkLen(n int, err error) error {
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, string(bc.algorithm)+" decompression failed")
	}
	if int64(n) > bc.limit {
		return errors.Wrap(ErrTooLarge, errors.ErrorTypeData, string(bc.algorithm)+" decompression failed").
			WithDetail("limit", bc.limit)
	}
	return nil
}

type noneCompressor struct {
	baseCompressor
}

func (nc *noneCompressor) Compress(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

func (nc *noneCompressor) Decompress(data []byte) ([]byte, error) {
	if err := nc.checkLen(len(data), nil); err != nil {
		return nil, err
	}
	return append([]byte(nil), data...), nil
}

type gzipCompressor struct {
	baseCompressor
	writerPool sync.Pool
	readerPool sync.Pool
}

func newGzipCompressor(base baseCompressor) *gzipCompressor {
	level := mapGzipLevel(base.level)
	gc := &gzipCompressor{baseCompressor: base}
	gc.writerPool.New = func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, level)
		return w
	}
	gc.readerPool.New = func() interface{} {
		return new(gzip.Reader)
	}
	return gc
}

func (gc *gzipCompressor) Compress(data []byte) ([]byte, error) {
	builder := stringpool.GetBuilder(stringpool.SizeFor(len(data)))
	defer stringpool.PutBuilder(builder, stringpool.SizeFor(len(data)))

	w := gc.writerPool.Get().(*gzip.Writer)
	defer gc.writerPool.Put(w)

	w.Reset(builder)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	result := make([]byte, builder.Len())
	copy(result, builder.Bytes())
	return result, nil
}

func (gc *gzipCompressor) Decompress(data []byte) ([]byte, error) {
	r := gc.readerPool.Get().(*gzip.Reader)
	defer gc.readerPool.Put(r)

	if err := r.Reset(bytes.NewReader(data)); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "gzip decompression failed")
	}
	return gc.readLimited(r)
}

type snappyCompressor struct {
	baseCompressor
}

func (sc *snappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (sc *snappyCompressor) Decompress(data []byte) ([]byte, error) {
	if err := sc.checkLen(snappy.DecodedLen(data)); err != nil {
		return nil, err
	}
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "snappy decompression failed")
	}
	return out, nil
}

type lz4Compressor struct {
	baseCompressor
	compressionLevel lz4.CompressionLevel
}

func (lc *lz4Compressor) Compress(data []byte) ([]byte, error) {
	builder := stringpool.GetBuilder(stringpool.SizeFor(len(data)))
	defer stringpool.PutBuilder(builder, stringpool.SizeFor(len(data)))

	w := lz4.NewWriter(builder)
	if err := w.Apply(lz4.CompressionLevelOption(lc.compressionLevel)); err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	result := make([]byte, builder.Len())
	copy(result, builder.Bytes())
	return result, nil
}

func (lc *lz4Compressor) Decompress(data []byte) ([]byte, error) {
	return lc.readLimited(lz4.NewReader(bytes.NewReader(data)))
}

type zstdCompressor struct {
	baseCompressor
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newZstdCompressor(base baseCompressor) (*zstdCompressor, error) {
	// EncodeAll and DecodeAll are safe for concurrent use on a shared instance
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(mapZstdLevel(base.level)))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create zstd encoder")
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(base.limit)))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create zstd decoder")
	}
	return &zstdCompressor{baseCompressor: base, encoder: enc, decoder: dec}, nil
}

func (zc *zstdCompressor) Compress(data []byte) ([]byte, error) {
	return zc.encoder.EncodeAll(data, nil), nil
}

func (zc *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	out, err := zc.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "zstd decompression failed")
	}
	return out, zc.checkLen(len(out), nil)
}

type s2Compressor struct {
	baseCompressor
}

func (sc *s2Compressor) Compress(data []byte) ([]byte, error) {
	return s2.Encode(nil, data), nil
}

func (sc *s2Compressor) Decompress(data []byte) ([]byte, error) {
	if err := sc.checkLen(s2.DecodedLen(data)); err != nil {
		return nil, err
	}
	out, err := s2.Decode(nil, data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "s2 decompression failed")
	}
	return out, nil
}

type deflateCompressor struct {
	baseCompressor
	flateLevel int
}

func (dc *deflateCompressor) Compress(data []byte) ([]byte, error) {
	builder := stringpool.GetBuilder(stringpool.SizeFor(len(data)))
	defer stringpool.PutBuilder(builder, stringpool.SizeFor(len(data)))

	w, err := flate.NewWriter(builder, dc.flateLevel)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	result := make([]byte, builder.Len())
	copy(result, builder.Bytes())
	return result, nil
}

func (dc *deflateCompressor) Decompress(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	return dc.readLimited(r)
}

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func mapDeflateLevel(level Level) int {
	switch level {
	case Fastest:
		return flate.BestSpeed
	case Best:
		return flate.BestCompression
	default:
		return flate.DefaultCompression
	}
}
