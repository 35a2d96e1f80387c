// Package partsync provides per-partition incremental sync state for fan-out
// streams, and the checkpoint layer that persists it.
//
// A fan-out stream reads one endpoint once per partition (an account, a
// project, a parent record). partsync keeps an independent cursor for every
// partition so that partitions can be visited in any order, across runs,
// without losing or re-reading records.
//
// # Quick Start
//
//	import (
//	    "github.com/ajitpratap0/partsync/pkg/checkpoint"
//	    _ "github.com/ajitpratap0/partsync/pkg/checkpoint/stores/all"
//	    "github.com/ajitpratap0/partsync/pkg/config"
//	    "github.com/ajitpratap0/partsync/pkg/incremental"
//	)
//
//	cfg, err := config.Load("partsync.yaml")
//	store, err := checkpoint.NewStore(ctx, &cfg.Checkpoint)
//	codec, err := checkpoint.NewCodec(cfg.Compression)
//	mgr, err := checkpoint.NewManager("tickets", store, codec)
//
//	factory := incremental.NewCursorFactory(incremental.CursorConstructorFunc(newDateCursor))
//	cursor := incremental.NewPerPartitionCursor("tickets", router, factory)
//	if _, err := mgr.Restore(ctx, cursor); err != nil {
//	    return err
//	}
//	for slice, err := range cursor.StreamSlices(ctx) {
//	    // read records for slice, then cursor.UpdateState(slice, record)
//	}
//	err = mgr.Checkpoint(ctx, cursor)
//
// # Key Packages
//
//	pkg/incremental    - partition keys, composite slices, the per-partition cursor
//	pkg/checkpoint     - checkpoint codec, manager, store registry and built-in stores
//	pkg/checkpoint/stores/...
//	                   - bolt, postgres, mysql, snowflake, mongodb, s3, gcs, kafka, nats
//	pkg/config         - YAML and environment configuration
//	pkg/compression    - compression algorithms used for checkpoint blobs
//	pkg/errors         - typed errors
//	pkg/logger         - structured logging
//	pkg/metrics        - Prometheus collectors
//	pkg/observability  - OpenTelemetry tracing and metrics
//
// The partsync command (cmd/partsync) inspects, edits, copies and deletes
// stored checkpoints.
package partsync
