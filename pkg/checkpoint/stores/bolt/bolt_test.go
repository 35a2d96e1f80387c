package bolt_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/partsync/pkg/checkpoint"
	"github.com/ajitpratap0/partsync/pkg/checkpoint/checkpointtest"
	"github.com/ajitpratap0/partsync/pkg/checkpoint/stores/bolt"
	"github.com/ajitpratap0/partsync/pkg/config"
)

func openStore(t *testing.T, path string) *bolt.Store {
	t.Helper()
	store, err := bolt.Open(config.BoltStoreConfig{
		Path:        path,
		Bucket:      "checkpoints",
		LockTimeout: 100 * time.Millisecond,
	})
	require.NoError(t, err)
	return store
}

func TestStore_Contract(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "state.db"))
	defer store.Close()
	checkpointtest.RunStoreContract(t, store)
}

func TestStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	store := openStore(t, path)
	require.NoError(t, store.Save(ctx, "tickets", []byte(`{"states":[]}`)))
	require.NoError(t, store.Close())

	reopened := openStore(t, path)
	defer reopened.Close()
	got, err := reopened.Load(ctx, "tickets")
	require.NoError(t, err)
	assert.Equal(t, `{"states":[]}`, string(got))
}

func TestStore_LockTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store := openStore(t, path)
	defer store.Close()

	_, err := bolt.Open(config.BoltStoreConfig{Path: path, Bucket: "checkpoints", LockTimeout: 50 * time.Millisecond})
	assert.Error(t, err)
}

func TestStore_Closed(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, store.Close())

	err := store.Save(context.Background(), "tickets", []byte("x"))
	assert.ErrorIs(t, err, checkpoint.ErrClosed)
}

func TestRegistered(t *testing.T) {
	cfg := config.NewDefault().Checkpoint
	cfg.Store = config.StoreBolt
	cfg.Bolt.Path = filepath.Join(t.TempDir(), "state.db")

	store, err := checkpoint.NewStore(context.Background(), &cfg)
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, config.StoreBolt, store.Name())
}
