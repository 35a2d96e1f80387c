// Package metrics provides Prometheus collectors for the per-partition cursor
// and the checkpoint layer.
//
// # Basic Usage
//
//	// Count a newly registered partition
//	metrics.PartitionsRegistered.WithLabelValues("campaigns", metrics.OriginStream).Inc()
//
//	// Time a checkpoint write
//	timer := metrics.NewTimer("checkpoint_save")
//	err := store.Save(ctx, stream, data)
//	metrics.ObserveCheckpoint("campaigns", "s3", metrics.OpSave, timer.Stop(), err)
//
// All collectors are registered with the default Prometheus registry at
// package init via promauto.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registration origins for PartitionsRegistered.
const (
	OriginCheckpoint = "checkpoint"
	OriginStream     = "stream"
)

// Checkpoint operations.
const (
	OpSave    = "save"
	OpLoad    = "load"
	OpDelete  = "delete"
	OpList    = "list"
	OpRestore = "restore"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

var (
	// PartitionsRegistered counts cursors added to a stream's registry.
	// Labels: stream, origin (checkpoint/stream)
	PartitionsRegistered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsync_partitions_registered_total",
			Help: "Total number of partition cursors registered",
		},
		[]string{"stream", "origin"},
	)

	// ActivePartitions tracks the registry size of a stream.
	ActivePartitions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "partsync_active_partitions",
			Help: "Number of partition cursors held by a stream",
		},
		[]string{"stream"},
	)

	// SlicesEmitted counts composite slices handed to readers.
	SlicesEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsync_slices_emitted_total",
			Help: "Total number of composite slices emitted",
		},
		[]string{"stream"},
	)

	// StateUpdates counts record state updates routed to partition cursors.
	// Labels: stream, status (success/failure)
	StateUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsync_state_updates_total",
			Help: "Total number of state updates routed to partition cursors",
		},
		[]string{"stream", "status"},
	)

	// CheckpointOperations counts checkpoint store operations.
	// Labels: stream, store, operation, status
	CheckpointOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsync_checkpoint_operations_total",
			Help: "Total number of checkpoint store operations",
		},
		[]string{"stream", "store", "operation", "status"},
	)

	// CheckpointLatency tracks checkpoint store operation latency in seconds.
	CheckpointLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "partsync_checkpoint_latency_seconds",
			Help:    "Checkpoint store operation latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"store", "operation"},
	)

	// CheckpointBytes tracks encoded checkpoint sizes.
	CheckpointBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "partsync_checkpoint_bytes",
			Help:    "Size of encoded checkpoints in bytes",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		},
		[]string{"store"},
	)

	// StoreRetries counts retried checkpoint store operations.
	StoreRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partsync_checkpoint_retries_total",
			Help: "Total number of retried checkpoint store operations",
		},
		[]string{"store", "operation"},
	)

	// CircuitState reports the circuit breaker of a store: 0 closed, 1 open, 2 half-open.
	CircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "partsync_checkpoint_circuit_state",
			Help: "Circuit breaker state of a checkpoint store",
		},
		[]string{"store"},
	)
)

// ObserveCheckpoint records one checkpoint store operation.
func ObserveCheckpoint(stream, store, operation string, elapsed time.Duration, err error) {
	status := statusSuccess
	if err != nil {
		status = statusFailure
	}
	CheckpointOperations.WithLabelValues(stream, store, operation, status).Inc()
	CheckpointLatency.WithLabelValues(store, operation).Observe(elapsed.Seconds())
}

// ObserveStateUpdate records one routed state update.
func ObserveStateUpdate(stream string, err error) {
	status := statusSuccess
	if err != nil {
		status = statusFailure
	}
	StateUpdates.WithLabelValues(stream, status).Inc()
}

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the timer name.
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. It can be called repeatedly.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
