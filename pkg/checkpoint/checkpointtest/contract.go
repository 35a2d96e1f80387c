// Package checkpointtest provides a behavioural test suite that every
// checkpoint.Store implementation must pass.
package checkpointtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/partsync/pkg/checkpoint"
)

// RunStoreContract exercises store. Streams are prefixed with a unique run id
// so the suite can run against shared external services; List assertions
// only look at streams created by the run.
func RunStoreContract(t *testing.T, store checkpoint.Store) {
	t.Helper()
	prefix := fmt.Sprintf("contract-%d", time.Now().UnixNano())
	stream := func(name string) string { return prefix + "." + name }

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	t.Run("LoadMissing", func(t *testing.T) {
		_, err := store.Load(ctx, stream("missing"))
		require.Error(t, err)
		assert.True(t, checkpoint.IsNotFound(err), "got %v", err)
	})

	t.Run("SaveLoad", func(t *testing.T) {
		data := []byte(`{"states":[{"partition":{"id":"1"},"cursor":{"updated_at":"2024-01-10"}}]}`)
		require.NoError(t, store.Save(ctx, stream("tickets"), data))

		got, err := store.Load(ctx, stream("tickets"))
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, stream("overwrite"), []byte("first")))
		require.NoError(t, store.Save(ctx, stream("overwrite"), []byte("second")))

		got, err := store.Load(ctx, stream("overwrite"))
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), got)
	})

	t.Run("BinarySafe", func(t *testing.T) {
		data := []byte{0x00, 0xff, 'P', 'S', 'C', '1', 0x04, 0x80, 0x0a}
		require.NoError(t, store.Save(ctx, stream("binary"), data))

		got, err := store.Load(ctx, stream("binary"))
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, stream("deleted"), []byte("x")))
		require.NoError(t, store.Delete(ctx, stream("deleted")))

		_, err := store.Load(ctx, stream("deleted"))
		assert.True(t, checkpoint.IsNotFound(err), "got %v", err)

		// deleting twice is fine
		require.NoError(t, store.Delete(ctx, stream("deleted")))
	})

	t.Run("List", func(t *testing.T) {
		for _, name := range []string{"b", "a", "c"} {
			require.NoError(t, store.Save(ctx, stream("list-"+name), []byte(name)))
		}
		require.NoError(t, store.Delete(ctx, stream("list-c")))

		all, err := store.List(ctx)
		require.NoError(t, err)

		var ours []string
		for _, s := range all {
			if strings.HasPrefix(s, stream("list-")) {
				ours = append(ours, s)
			}
		}
		assert.Equal(t, []string{stream("list-a"), stream("list-b")}, ours)
	})

	t.Run("Concurrent", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				name := stream(fmt.Sprintf("concurrent-%d", i))
				if err := store.Save(ctx, name, []byte(name)); err != nil {
					errs <- err
					return
				}
				got, err := store.Load(ctx, name)
				if err != nil {
					errs <- err
					return
				}
				if string(got) != name {
					errs <- fmt.Errorf("stream %s: got %q", name, got)
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			assert.NoError(t, err)
		}
	})
}
