package nats_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/partsync/pkg/checkpoint/checkpointtest"
	"github.com/ajitpratap0/partsync/pkg/checkpoint/stores/nats"
	"github.com/ajitpratap0/partsync/pkg/config"
	"github.com/ajitpratap0/partsync/pkg/testutil"
)

func TestStore_Contract(t *testing.T) {
	url := testutil.RequireEnv(t, "PARTSYNC_TEST_NATS_URL")

	store, err := nats.Open(context.Background(), config.NATSStoreConfig{
		URL:      url,
		Bucket:   "partsync-checkpoints-test",
		Replicas: 1,
		History:  1,
	})
	require.NoError(t, err)
	defer store.Close()

	checkpointtest.RunStoreContract(t, store)
}
