package checkpoint

import (
	"bytes"
	stderrors "errors"
	"sync"

	"github.com/ajitpratap0/partsync/pkg/compression"
	"github.com/ajitpratap0/partsync/pkg/config"
	"github.com/ajitpratap0/partsync/pkg/errors"
	"github.com/ajitpratap0/partsync/pkg/incremental"
	"github.com/ajitpratap0/partsync/pkg/json"
)

// frameMagic starts every compressed checkpoint. The frame is
//
//	"PSC1" | len(algorithm) as one byte | algorithm | compressed JSON
//
// Uncompressed checkpoints are plain JSON objects and start with '{'.
const frameMagic = "PSC1"

// ErrCorrupt is the cause of errors for blobs that are neither a plain JSON
// checkpoint nor a valid compressed frame.
var ErrCorrupt = stderrors.New("corrupt checkpoint")

// Codec converts persisted state to and from checkpoint blobs. Decode reads
// any supported framing regardless of the algorithm Encode is configured with,
// so changing compression never strands existing checkpoints.
type Codec struct {
	algorithm compression.Algorithm
	level     compression.Level
	maxSize   int64

	mu    sync.Mutex
	pools map[compression.Algorithm]*compression.CompressorPool
}

// NewCodec creates a codec from the compression section of the configuration.
func NewCodec(cfg config.CompressionConfig) (*Codec, error) {
	algorithm, err := compression.ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	level, err := compression.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	c := &Codec{
		algorithm: algorithm,
		level:     level,
		maxSize:   compression.DefaultMaxDecompressedSize,
		pools:     make(map[compression.Algorithm]*compression.CompressorPool),
	}
	if algorithm != compression.None {
		// fail on construction rather than on the first checkpoint
		if _, err := c.pool(algorithm); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Algorithm returns the algorithm used by Encode.
func (c *Codec) Algorithm() compression.Algorithm {
	return c.algorithm
}

// Encode renders state as JSON and compresses it when configured. A nil
// state encodes as an empty checkpoint.
func (c *Codec) Encode(state *incremental.PersistedState) ([]byte, error) {
	if state == nil {
		state = &incremental.PersistedState{}
	}
	payload, err := json.Marshal(state.ToMap())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeCheckpoint, "failed to encode checkpoint")
	}
	if c.algorithm == compression.None {
		return payload, nil
	}

	pool, err := c.pool(c.algorithm)
	if err != nil {
		return nil, err
	}
	compressed, err := pool.Compress(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeCheckpoint, "failed to compress checkpoint").
			WithDetail("algorithm", string(c.algorithm))
	}

	alg := string(c.algorithm)
	out := make([]byte, 0, len(frameMagic)+1+len(alg)+len(compressed))
	out = append(out, frameMagic...)
	out = append(out, byte(len(alg)))
	out = append(out, alg...)
	out = append(out, compressed...)
	return out, nil
}

// Decode parses a checkpoint blob. Structural problems in the JSON are
// reported as *incremental.MalformedStateError; unreadable blobs match
// ErrCorrupt.
func (c *Codec) Decode(data []byte) (*incremental.PersistedState, error) {
	payload, err := c.unframe(data)
	if err != nil {
		return nil, err
	}
	raw, err := json.DecodeObject(payload)
	if err != nil {
		return nil, corrupt("checkpoint is not a JSON object", err)
	}
	return incremental.ParsePersistedState(raw)
}

// Payload returns the JSON document inside a checkpoint blob.
func (c *Codec) Payload(data []byte) ([]byte, error) {
	return c.unframe(data)
}

func (c *Codec) unframe(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, []byte(frameMagic)) {
		trimmed := bytes.TrimLeft(data, " \t\r\n")
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return nil, corrupt("unrecognized checkpoint format", nil)
		}
		return data, nil
	}

	rest := data[len(frameMagic):]
	if len(rest) == 0 || int(rest[0]) > len(rest)-1 {
		return nil, corrupt("truncated compression header", nil)
	}
	n := int(rest[0])
	algorithm, err := compression.ParseAlgorithm(string(rest[1 : 1+n]))
	if err != nil || algorithm == compression.None {
		return nil, corrupt("unknown compression algorithm in header", err)
	}

	pool, err := c.pool(algorithm)
	if err != nil {
		return nil, err
	}
	payload, err := pool.Decompress(rest[1+n:])
	if err != nil {
		return nil, corrupt("failed to decompress checkpoint", err)
	}
	return payload, nil
}

func (c *Codec) pool(algorithm compression.Algorithm) (*compression.CompressorPool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.pools[algorithm]; ok {
		return p, nil
	}
	p, err := compression.NewCompressorPool(&compression.Config{
		Algorithm:           algorithm,
		Level:               c.level,
		MaxDecompressedSize: c.maxSize,
	})
	if err != nil {
		return nil, err
	}
	c.pools[algorithm] = p
	return p, nil
}

func corrupt(message string, cause error) error {
	err := errors.Wrap(ErrCorrupt, errors.ErrorTypeCheckpoint, message)
	if cause != nil {
		err = err.WithDetail("cause", cause.Error())
	}
	return err
}
