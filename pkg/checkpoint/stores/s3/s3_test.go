package s3_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/partsync/pkg/checkpoint/checkpointtest"
	"github.com/ajitpratap0/partsync/pkg/checkpoint/stores/s3"
	"github.com/ajitpratap0/partsync/pkg/config"
	"github.com/ajitpratap0/partsync/pkg/testutil"
)

// Runs against AWS or an S3-compatible endpoint such as MinIO.
func TestStore_Contract(t *testing.T) {
	bucket := testutil.RequireEnv(t, "PARTSYNC_TEST_S3_BUCKET")

	store, err := s3.Open(context.Background(), config.S3StoreConfig{
		Bucket:       bucket,
		Prefix:       "partsync-test/",
		Endpoint:     testutil.GetEnv("PARTSYNC_TEST_S3_ENDPOINT", ""),
		Region:       testutil.GetEnv("AWS_REGION", "us-east-1"),
		UsePathStyle: true,
	})
	require.NoError(t, err)
	defer store.Close()

	checkpointtest.RunStoreContract(t, store)
}
