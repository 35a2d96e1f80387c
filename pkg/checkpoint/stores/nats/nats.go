// Package nats stores checkpoints in a NATS JetStream key-value bucket.
package nats

import (
	"context"
	"sort"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/ajitpratap0/partsync/pkg/checkpoint"
	"github.com/ajitpratap0/partsync/pkg/config"
	"github.com/ajitpratap0/partsync/pkg/errors"
	"github.com/ajitpratap0/partsync/pkg/logger"
)

func init() {
	checkpoint.RegisterStore(config.StoreNATS, func(ctx context.Context, cfg *config.CheckpointConfig) (checkpoint.Store, error) {
		return Open(ctx, cfg.NATS)
	})
}

// Store is a JetStream KV checkpoint store; keys are stream names.
type Store struct {
	conn *nats.Conn
	kv   jetstream.KeyValue
}

// Open connects to cfg.URL and creates or opens the bucket.
func Open(ctx context.Context, cfg config.NATSStoreConfig) (*Store, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name("partsync"))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to nats")
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create jetstream context")
	}

	history := cfg.History
	if history <= 0 {
		history = 1
	}
	kv, err := EnsureBucket(ctx, js, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "partsync checkpoints",
		Replicas:    cfg.Replicas,
		History:     uint8(min(history, jetstream.KeyValueMaxHistory)), //nolint:gosec // bounded above
	}, 3)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Store{conn: conn, kv: kv}, nil
}

// EnsureBucket creates the bucket or opens it when another process created
// it first, retrying with exponential backoff.
func EnsureBucket(ctx context.Context, js jetstream.JetStream, cfg jetstream.KeyValueConfig, maxRetries int) (jetstream.KeyValue, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		kv, err := js.CreateKeyValue(ctx, cfg)
		if err == nil {
			return kv, nil
		}
		if errors.Is(err, jetstream.ErrBucketExists) {
			if kv, err = js.KeyValue(ctx, cfg.Bucket); err == nil {
				return kv, nil
			}
		}
		lastErr = err

		if attempt < maxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * 10 * time.Millisecond //nolint:gosec // attempt is bounded
			logger.Get().Debug("retrying kv bucket creation",
				zap.String("bucket", cfg.Bucket),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "cancelled while creating kv bucket")
			case <-time.After(backoff):
			}
		}
	}
	return nil, errors.Wrap(lastErr, errors.ErrorTypeConnection, "failed to create or open kv bucket").
		WithDetail("bucket", cfg.Bucket).
		WithDetail("attempts", maxRetries)
}

func (s *Store) Name() string { return config.StoreNATS }

func (s *Store) Save(ctx context.Context, stream string, data []byte) error {
	if _, err := s.kv.Put(ctx, stream, data); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to put checkpoint").WithDetail("stream", stream)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, stream string) ([]byte, error) {
	entry, err := s.kv.Get(ctx, stream)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, checkpoint.NewNotFoundError(s.Name(), stream)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to get checkpoint").WithDetail("stream", stream)
	}
	return entry.Value(), nil
}

// Delete purges the key so its history does not linger in the bucket.
func (s *Store) Delete(ctx context.Context, stream string) error {
	err := s.kv.Purge(ctx, stream)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to purge checkpoint").WithDetail("stream", stream)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []string{}, nil
		}
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to list checkpoints")
	}
	defer lister.Stop() //nolint:errcheck

	var streams []string
	for key := range lister.Keys() {
		streams = append(streams, key)
	}
	sort.Strings(streams)
	return streams, nil
}

func (s *Store) Close() error {
	return s.conn.Drain()
}
