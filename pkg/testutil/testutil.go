// Package testutil provides testing utilities for partsync: loggers, contexts,
// integration gating and scripted routers and cursors for driving a
// PerPartitionCursor in tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/partsync/pkg/logger"
)

// UseTestLogger installs a zaptest logger as the global logger for the
// duration of the test.
func UseTestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	l := zaptest.NewLogger(t)
	t.Cleanup(logger.SetForTesting(l))
	return l
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
