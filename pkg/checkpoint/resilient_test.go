package checkpoint_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/partsync/pkg/checkpoint"
	"github.com/ajitpratap0/partsync/pkg/checkpoint/checkpointtest"
	"github.com/ajitpratap0/partsync/pkg/config"
	"github.com/ajitpratap0/partsync/pkg/errors"
)

// flakyStore fails the next n calls with a connection error.
type flakyStore struct {
	checkpoint.Store
	mu    sync.Mutex
	fails int
	calls int
}

func (f *flakyStore) failNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails = n
}

func (f *flakyStore) check() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fails > 0 {
		f.fails--
		return errors.New(errors.ErrorTypeConnection, "connection reset")
	}
	return nil
}

func (f *flakyStore) Save(ctx context.Context, stream string, data []byte) error {
	if err := f.check(); err != nil {
		return err
	}
	return f.Store.Save(ctx, stream, data)
}

func (f *flakyStore) Load(ctx context.Context, stream string) ([]byte, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	return f.Store.Load(ctx, stream)
}

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func newResilient(t *testing.T, cfg config.RetryConfig) (*checkpoint.ResilientStore, *flakyStore, *fakeClock) {
	t.Helper()
	flaky := &flakyStore{Store: checkpoint.NewMemoryStore()}
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return checkpoint.NewResilientStore(flaky, cfg, checkpoint.WithClock(clock.Now, clock.Sleep)), flaky, clock
}

func TestResilientStore_Contract(t *testing.T) {
	store, _, _ := newResilient(t, config.NewDefault().Checkpoint.Retry)
	checkpointtest.RunStoreContract(t, store)
}

func TestResilientStore_RetriesWithBackoff(t *testing.T) {
	store, flaky, clock := newResilient(t, config.RetryConfig{
		MaxAttempts:    4,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     250 * time.Millisecond,
	})
	ctx := context.Background()

	flaky.failNext(3)
	require.NoError(t, store.Save(ctx, "tickets", []byte("state")))
	assert.Equal(t, 4, flaky.calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 250 * time.Millisecond}, clock.sleeps)

	data, err := store.Load(ctx, "tickets")
	require.NoError(t, err)
	assert.Equal(t, []byte("state"), data)
}

func TestResilientStore_GivesUp(t *testing.T) {
	store, flaky, _ := newResilient(t, config.RetryConfig{MaxAttempts: 2, FailureThreshold: 10})

	flaky.failNext(5)
	err := store.Save(context.Background(), "tickets", []byte("state"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
	assert.Equal(t, 2, flaky.calls)
}

func TestResilientStore_NotFoundIsNotRetried(t *testing.T) {
	store, flaky, clock := newResilient(t, config.RetryConfig{MaxAttempts: 3, FailureThreshold: 1})

	_, err := store.Load(context.Background(), "missing")
	assert.True(t, checkpoint.IsNotFound(err))
	assert.Equal(t, 1, flaky.calls)
	assert.Empty(t, clock.sleeps)
	assert.Equal(t, checkpoint.CircuitClosed, store.State())
}

func TestResilientStore_CircuitBreaker(t *testing.T) {
	store, flaky, clock := newResilient(t, config.RetryConfig{
		MaxAttempts:      1,
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
	})
	ctx := context.Background()

	flaky.failNext(2)
	require.Error(t, store.Save(ctx, "tickets", []byte("a")))
	require.Error(t, store.Save(ctx, "tickets", []byte("a")))
	assert.Equal(t, checkpoint.CircuitOpen, store.State())

	err := store.Save(ctx, "tickets", []byte("a"))
	require.Error(t, err)
	assert.ErrorIs(t, err, checkpoint.ErrCircuitOpen)
	assert.Equal(t, 2, flaky.calls, "open breaker must not reach the store")

	clock.now = clock.now.Add(time.Minute)
	require.NoError(t, store.Save(ctx, "tickets", []byte("b")))
	assert.Equal(t, checkpoint.CircuitClosed, store.State())
}

func TestResilientStore_FailedProbeReopens(t *testing.T) {
	store, flaky, clock := newResilient(t, config.RetryConfig{
		MaxAttempts:      1,
		FailureThreshold: 1,
		ResetTimeout:     time.Second,
	})
	ctx := context.Background()

	flaky.failNext(2)
	require.Error(t, store.Save(ctx, "tickets", nil))
	clock.now = clock.now.Add(time.Second)
	require.Error(t, store.Save(ctx, "tickets", nil))
	assert.Equal(t, checkpoint.CircuitOpen, store.State())
	assert.Equal(t, "open", store.State().String())
}
