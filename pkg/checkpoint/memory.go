package checkpoint

import (
	"context"
	"sort"
	"sync"

	"github.com/ajitpratap0/partsync/pkg/config"
)

// MemoryStore keeps checkpoints in process memory. It backs tests and dry runs.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Name() string { return config.StoreMemory }

func (s *MemoryStore) Save(ctx context.Context, stream string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return NewClosedError(s.Name())
	}
	s.data[stream] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, stream string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, NewClosedError(s.Name())
	}
	data, ok := s.data[stream]
	if !ok {
		return nil, NewNotFoundError(s.Name(), stream)
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Delete(ctx context.Context, stream string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return NewClosedError(s.Name())
	}
	delete(s.data, stream)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, NewClosedError(s.Name())
	}
	streams := make([]string, 0, len(s.data))
	for stream := range s.data {
		streams = append(streams, stream)
	}
	sort.Strings(streams)
	return streams, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
