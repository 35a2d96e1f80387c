package main

import (
	"github.com/ajitpratap0/partsync/pkg/incremental"
)

// staticHolder hands a fixed state to checkpoint.Manager.
type staticHolder struct {
	state *incremental.PersistedState
}

func (h staticHolder) SetInitialState(s *incremental.PersistedState) error {
	*h.state = *s
	return nil
}

func (h staticHolder) GetStreamState() (*incremental.PersistedState, error) {
	return h.state, nil
}
