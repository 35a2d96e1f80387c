package checkpoint

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/partsync/pkg/config"
	"github.com/ajitpratap0/partsync/pkg/errors"
	"github.com/ajitpratap0/partsync/pkg/logger"
)

// StoreFactory opens a store from the checkpoint section of the configuration.
type StoreFactory func(ctx context.Context, cfg *config.CheckpointConfig) (Store, error)

// Registry maps store names to factories.
type Registry struct {
	factories map[string]StoreFactory
	mu        sync.RWMutex
	logger    *zap.Logger
}

var globalRegistry = NewRegistry()

// NewRegistry creates an empty store registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]StoreFactory),
		logger:    logger.Get().With(zap.String("component", "checkpoint_registry")),
	}
}

// Register adds a store factory. Names are unique.
func (r *Registry) Register(name string, factory StoreFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" || factory == nil {
		return errors.New(errors.ErrorTypeConfig, "store name and factory are required")
	}
	if _, exists := r.factories[name]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "checkpoint store %s already registered", name)
	}

	r.factories[name] = factory
	r.logger.Debug("checkpoint store registered", zap.String("name", name))
	return nil
}

// Open validates cfg and opens the store it selects.
func (r *Registry) Open(ctx context.Context, cfg *config.CheckpointConfig) (Store, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "checkpoint configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	factory, exists := r.factories[cfg.Store]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrorTypeConfig,
			"checkpoint store %s not registered (linked stores: %v)", cfg.Store, r.List())
	}

	store, err := factory(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to open checkpoint store "+cfg.Store)
	}
	if cfg.Retry.Enabled() && !isLocal(cfg.Store) {
		return NewResilientStore(store, cfg.Retry), nil
	}
	return store, nil
}

// isLocal reports whether name is a built-in store with no remote backend.
func isLocal(name string) bool {
	return name == config.StoreMemory || name == config.StoreFile
}

// List returns the registered store names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a store is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[name]
	return exists
}

// RegisterStore registers a store in the global registry. Store packages
// call it from init and panic on duplicates.
func RegisterStore(name string, factory StoreFactory) {
	if err := globalRegistry.Register(name, factory); err != nil {
		panic(err)
	}
}

// NewStore opens the store selected by cfg from the global registry.
func NewStore(ctx context.Context, cfg *config.CheckpointConfig) (Store, error) {
	return globalRegistry.Open(ctx, cfg)
}

// ListStores returns the stores linked into the binary.
func ListStores() []string {
	return globalRegistry.List()
}

// HasStore checks if a store is registered in the global registry.
func HasStore(name string) bool {
	return globalRegistry.Has(name)
}

func init() {
	RegisterStore(config.StoreMemory, func(_ context.Context, _ *config.CheckpointConfig) (Store, error) {
		return NewMemoryStore(), nil
	})
	RegisterStore(config.StoreFile, func(_ context.Context, cfg *config.CheckpointConfig) (Store, error) {
		return NewFileStore(cfg.File.Dir)
	})
}
