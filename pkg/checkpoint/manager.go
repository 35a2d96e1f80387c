package checkpoint

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/partsync/pkg/compression"
	"github.com/ajitpratap0/partsync/pkg/config"
	"github.com/ajitpratap0/partsync/pkg/errors"
	"github.com/ajitpratap0/partsync/pkg/incremental"
	"github.com/ajitpratap0/partsync/pkg/logger"
	"github.com/ajitpratap0/partsync/pkg/metrics"
	"github.com/ajitpratap0/partsync/pkg/observability"
)

// StateHolder is the part of a cursor the manager checkpoints.
// *incremental.PerPartitionCursor satisfies it.
type StateHolder interface {
	SetInitialState(state *incremental.PersistedState) error
	GetStreamState() (*incremental.PersistedState, error)
}

// Manager saves and restores the checkpoint of one stream.
type Manager struct {
	stream  string
	store   Store
	codec   *Codec
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout bounds every store operation. Zero leaves ctx untouched.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// NewManager creates a manager for stream. A nil codec stores uncompressed JSON.
func NewManager(stream string, store Store, codec *Codec, opts ...Option) (*Manager, error) {
	if err := ValidateStream(stream); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "checkpoint store is required")
	}
	if codec == nil {
		codec, _ = NewCodec(config.CompressionConfig{Algorithm: string(compression.None)})
	}
	m := &Manager{
		stream: stream,
		store:  store,
		codec:  codec,
		logger: logger.Get().With(
			zap.String("component", "checkpoint_manager"),
			zap.String("stream", stream),
			zap.String("store", store.Name()),
		),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Stream returns the managed stream name.
func (m *Manager) Stream() string { return m.stream }

// Store returns the underlying store.
func (m *Manager) Store() Store { return m.store }

// Load reads and decodes the stored checkpoint. A missing checkpoint is
// returned as an error matching ErrNotFound.
func (m *Manager) Load(ctx context.Context) (*incremental.PersistedState, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	timer := metrics.NewTimer("checkpoint_load")
	data, err := m.store.Load(ctx, m.stream)
	metrics.ObserveCheckpoint(m.stream, m.store.Name(), metrics.OpLoad, timer.Stop(), ignoreNotFound(err))
	if err != nil {
		return nil, err
	}
	return m.codec.Decode(data)
}

// Restore seeds holder from the stored checkpoint. It reports false, and
// leaves holder untouched, when the stream has no checkpoint yet.
func (m *Manager) Restore(ctx context.Context, holder StateHolder) (restored bool, err error) {
	ctx, span := observability.StartSpan(ctx, "checkpoint.restore",
		attribute.String("stream", m.stream),
		attribute.String("store", m.store.Name()))
	defer func() { span.End(err) }()

	timer := metrics.NewTimer("checkpoint_restore")
	defer func() {
		metrics.ObserveCheckpoint(m.stream, m.store.Name(), metrics.OpRestore, timer.Stop(), err)
	}()

	state, err := m.Load(ctx)
	if IsNotFound(err) {
		m.logger.Info("no checkpoint found, starting from scratch")
		span.SetAttribute("found", false)
		span.AddEvent("checkpoint.missing")
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := holder.SetInitialState(state); err != nil {
		return false, err
	}

	span.SetAttribute("found", true)
	span.SetAttribute("partitions", len(state.States))
	observability.RecordRestoredPartitions(ctx, m.stream, len(state.States))
	m.logger.Info("checkpoint restored",
		zap.Int("partitions", len(state.States)),
		zap.Bool("parent_state", len(state.ParentState) > 0))
	return true, nil
}

// Checkpoint encodes holder's current state and saves it.
func (m *Manager) Checkpoint(ctx context.Context, holder StateHolder) (err error) {
	ctx, span := observability.StartSpan(ctx, "checkpoint.save",
		attribute.String("stream", m.stream),
		attribute.String("store", m.store.Name()))
	defer func() { span.End(err) }()

	state, err := holder.GetStreamState()
	if err != nil {
		return err
	}
	data, err := m.codec.Encode(state)
	if err != nil {
		return err
	}

	saveCtx, cancel := m.withTimeout(ctx)
	defer cancel()

	timer := metrics.NewTimer("checkpoint_save")
	err = m.store.Save(saveCtx, m.stream, data)
	elapsed := timer.Stop()
	metrics.ObserveCheckpoint(m.stream, m.store.Name(), metrics.OpSave, elapsed, err)
	if err != nil {
		m.logger.Error("failed to save checkpoint", zap.Error(err))
		return err
	}

	metrics.CheckpointBytes.WithLabelValues(m.store.Name()).Observe(float64(len(data)))
	observability.RecordCheckpointSize(ctx, m.stream, m.store.Name(), len(data))
	span.SetAttribute("bytes", len(data))
	span.SetAttribute("partitions", len(state.States))
	m.logger.Info("checkpoint saved",
		zap.Int("partitions", len(state.States)),
		zap.Int("bytes", len(data)),
		zap.String("compression", string(m.codec.Algorithm())),
		zap.Duration("elapsed", elapsed))
	return nil
}

// Delete removes the stream's checkpoint.
func (m *Manager) Delete(ctx context.Context) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	timer := metrics.NewTimer("checkpoint_delete")
	err := m.store.Delete(ctx, m.stream)
	metrics.ObserveCheckpoint(m.stream, m.store.Name(), metrics.OpDelete, timer.Stop(), err)
	if err == nil {
		m.logger.Info("checkpoint deleted")
	}
	return err
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.timeout)
}

// Copy copies the raw checkpoint of stream from one store to another
// without decoding it.
func Copy(ctx context.Context, from, to Store, stream string) error {
	if err := ValidateStream(stream); err != nil {
		return err
	}
	data, err := from.Load(ctx, stream)
	if err != nil {
		return err
	}
	if err := to.Save(ctx, stream, data); err != nil {
		return err
	}
	logger.WithContext(ctx).Info("checkpoint copied",
		zap.String("stream", stream),
		zap.String("from", from.Name()),
		zap.String("to", to.Name()),
		zap.Int("bytes", len(data)))
	return nil
}

func ignoreNotFound(err error) error {
	if IsNotFound(err) {
		return nil
	}
	return err
}
