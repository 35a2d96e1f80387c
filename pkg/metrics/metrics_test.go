package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCheckpoint(t *testing.T) {
	before := testutil.ToFloat64(CheckpointOperations.WithLabelValues("orders", "memory", OpSave, statusSuccess))
	failBefore := testutil.ToFloat64(CheckpointOperations.WithLabelValues("orders", "memory", OpSave, statusFailure))

	ObserveCheckpoint("orders", "memory", OpSave, 5*time.Millisecond, nil)
	ObserveCheckpoint("orders", "memory", OpSave, time.Millisecond, errors.New("boom"))

	assert.Equal(t, before+1, testutil.ToFloat64(CheckpointOperations.WithLabelValues("orders", "memory", OpSave, statusSuccess)))
	assert.Equal(t, failBefore+1, testutil.ToFloat64(CheckpointOperations.WithLabelValues("orders", "memory", OpSave, statusFailure)))
}

func TestObserveStateUpdate(t *testing.T) {
	before := testutil.ToFloat64(StateUpdates.WithLabelValues("orders", statusFailure))
	ObserveStateUpdate("orders", errors.New("unknown partition"))
	assert.Equal(t, before+1, testutil.ToFloat64(StateUpdates.WithLabelValues("orders", statusFailure)))
}

func TestTimer(t *testing.T) {
	timer := NewTimer("op")
	time.Sleep(2 * time.Millisecond)
	first := timer.Stop()
	second := timer.Stop()

	assert.Equal(t, "op", timer.Name())
	assert.GreaterOrEqual(t, first, 2*time.Millisecond)
	assert.GreaterOrEqual(t, second, first)
}
