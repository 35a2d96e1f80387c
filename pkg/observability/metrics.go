package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	instrumentsOnce sync.Once
	checkpointSize  metric.Int64Histogram
	restoredStates  metric.Int64Counter
)

func instruments() {
	instrumentsOnce.Do(func() {
		m := meter()
		checkpointSize, _ = m.Int64Histogram("partsync.checkpoint.size",
			metric.WithDescription("Encoded checkpoint size"),
			metric.WithUnit("By"))
		restoredStates, _ = m.Int64Counter("partsync.checkpoint.restored_partitions",
			metric.WithDescription("Partition states restored from checkpoints"))
	})
}

// RecordCheckpointSize records the encoded size of a saved checkpoint.
func RecordCheckpointSize(ctx context.Context, stream, store string, size int) {
	instruments()
	if checkpointSize == nil {
		return
	}
	checkpointSize.Record(ctx, int64(size), metric.WithAttributes(
		attribute.String("stream", stream),
		attribute.String("store", store),
	))
}

// RecordRestoredPartitions counts partition states seeded from a checkpoint.
func RecordRestoredPartitions(ctx context.Context, stream string, n int) {
	instruments()
	if restoredStates == nil {
		return
	}
	restoredStates.Add(ctx, int64(n), metric.WithAttributes(attribute.String("stream", stream)))
}
