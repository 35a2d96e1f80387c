package checkpoint_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/partsync/pkg/checkpoint"
	"github.com/ajitpratap0/partsync/pkg/config"
	"github.com/ajitpratap0/partsync/pkg/errors"
)

func TestRegistry_Builtins(t *testing.T) {
	assert.True(t, checkpoint.HasStore(config.StoreMemory))
	assert.True(t, checkpoint.HasStore(config.StoreFile))
	assert.Subset(t, checkpoint.ListStores(), []string{config.StoreFile, config.StoreMemory})
}

func TestRegistry_Duplicate(t *testing.T) {
	r := checkpoint.NewRegistry()
	factory := func(context.Context, *config.CheckpointConfig) (checkpoint.Store, error) {
		return checkpoint.NewMemoryStore(), nil
	}
	require.NoError(t, r.Register("custom", factory))

	err := r.Register("custom", factory)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	assert.Error(t, r.Register("", factory))
	assert.Error(t, r.Register("other", nil))
}

func TestRegistry_Open(t *testing.T) {
	r := checkpoint.NewRegistry()
	var seen *config.CheckpointConfig
	require.NoError(t, r.Register("custom", func(_ context.Context, cfg *config.CheckpointConfig) (checkpoint.Store, error) {
		seen = cfg
		return checkpoint.NewMemoryStore(), nil
	}))

	cfg := &config.CheckpointConfig{Store: "custom"}
	store, err := r.Open(context.Background(), cfg)
	require.NoError(t, err)
	assert.Same(t, cfg, seen)
	assert.Equal(t, config.StoreMemory, store.Name())
}

func TestRegistry_OpenErrors(t *testing.T) {
	r := checkpoint.NewRegistry()
	require.NoError(t, r.Register("broken", func(context.Context, *config.CheckpointConfig) (checkpoint.Store, error) {
		return nil, errors.New(errors.ErrorTypeConnection, "dial refused")
	}))

	_, err := r.Open(context.Background(), nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = r.Open(context.Background(), &config.CheckpointConfig{Store: "unknown"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")

	_, err = r.Open(context.Background(), &config.CheckpointConfig{Store: config.StoreFile})
	require.Error(t, err, "invalid section must be rejected before the factory runs")
	assert.Contains(t, err.Error(), "checkpoint.file.dir is required")

	_, err = r.Open(context.Background(), &config.CheckpointConfig{Store: "broken"})
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
}

func TestNewStore_File(t *testing.T) {
	cfg := config.NewDefault().Checkpoint
	cfg.File.Dir = t.TempDir()

	store, err := checkpoint.NewStore(context.Background(), &cfg)
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, config.StoreFile, store.Name())
}

func TestRegistry_OpenWrapsRemoteStores(t *testing.T) {
	r := checkpoint.NewRegistry()
	require.NoError(t, r.Register("remote", func(context.Context, *config.CheckpointConfig) (checkpoint.Store, error) {
		return checkpoint.NewMemoryStore(), nil
	}))

	cfg := config.NewDefault().Checkpoint
	cfg.Store = "remote"
	store, err := r.Open(context.Background(), &cfg)
	require.NoError(t, err)
	resilient, ok := store.(*checkpoint.ResilientStore)
	require.True(t, ok)
	assert.Equal(t, config.StoreMemory, resilient.Unwrap().Name())

	cfg.Retry.MaxAttempts = 1
	store, err = r.Open(context.Background(), &cfg)
	require.NoError(t, err)
	_, ok = store.(*checkpoint.ResilientStore)
	assert.False(t, ok)
}

func TestNewStore_FileIsNotWrapped(t *testing.T) {
	cfg := config.NewDefault().Checkpoint
	cfg.File.Dir = t.TempDir()

	store, err := checkpoint.NewStore(context.Background(), &cfg)
	require.NoError(t, err)
	_, ok := store.(*checkpoint.FileStore)
	assert.True(t, ok)
}
