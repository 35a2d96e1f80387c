// Package checkpoint persists the state of per-partition cursors.
//
// A Manager ties a stream to a Store and a Codec:
//
//	store, err := checkpoint.NewStore(ctx, &cfg.Checkpoint)
//	codec, err := checkpoint.NewCodec(cfg.Compression)
//	mgr, err := checkpoint.NewManager("tickets", store, codec)
//
//	if _, err := mgr.Restore(ctx, cursor); err != nil {
//	    return err
//	}
//	// ... read slices ...
//	if err := mgr.Checkpoint(ctx, cursor); err != nil {
//	    return err
//	}
//
// The memory and file stores are always linked. Other stores live in
// subpackages of pkg/checkpoint/stores and register themselves on import;
// import pkg/checkpoint/stores/all to link every one of them.
//
// Checkpoints are JSON documents, optionally compressed. Compressed blobs
// carry their algorithm in a short header, so a codec configured with one
// algorithm reads checkpoints written with any other.
package checkpoint
