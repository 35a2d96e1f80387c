package checkpoint

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/partsync/pkg/config"
	"github.com/ajitpratap0/partsync/pkg/errors"
	"github.com/ajitpratap0/partsync/pkg/logger"
	"github.com/ajitpratap0/partsync/pkg/metrics"
)

// ErrCircuitOpen is returned while a store's circuit breaker rejects calls.
var ErrCircuitOpen = stderrors.New("checkpoint store circuit breaker is open")

// CircuitState is the state of a circuit breaker.
type CircuitState int32

const (
	// CircuitClosed lets every call through
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the reset timeout elapses
	CircuitOpen
	// CircuitHalfOpen lets a single probe through
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// circuitBreaker opens after threshold consecutive failures and probes again
// once resetTimeout has passed.
type circuitBreaker struct {
	store        string
	threshold    int
	resetTimeout time.Duration
	now          func() time.Time
	logger       *zap.Logger

	mu        sync.Mutex
	state     CircuitState
	failures  int
	openUntil time.Time
	probing   bool
}

func (cb *circuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Before(cb.openUntil) {
			return false
		}
		cb.setState(CircuitHalfOpen)
		cb.logger.Info("circuit breaker half-open")
		cb.probing = true
		return true
	default:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.probing = false
	if cb.state != CircuitClosed {
		cb.setState(CircuitClosed)
		cb.logger.Info("circuit breaker closed")
	}
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.probing = false
	if cb.state == CircuitHalfOpen || cb.failures >= cb.threshold {
		cb.openUntil = cb.now().Add(cb.resetTimeout)
		cb.setState(CircuitOpen)
		cb.logger.Warn("circuit breaker opened",
			zap.Time("retry_after", cb.openUntil),
			zap.Int("consecutive_failures", cb.failures))
	}
}

func (cb *circuitBreaker) current() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// setState must be called with mu held.
func (cb *circuitBreaker) setState(state CircuitState) {
	cb.state = state
	metrics.CircuitState.WithLabelValues(cb.store).Set(float64(state))
}

// ResilientStore retries retryable failures of the wrapped store with
// exponential backoff and stops calling it while its circuit breaker is open.
// NotFound and other non-retryable errors pass through and do not count as
// failures.
type ResilientStore struct {
	store   Store
	cfg     config.RetryConfig
	breaker *circuitBreaker
	sleep   func(context.Context, time.Duration) error
	logger  *zap.Logger
}

// ResilientOption customizes a ResilientStore.
type ResilientOption func(*ResilientStore)

// WithClock replaces the clock and the backoff sleep, for tests.
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) ResilientOption {
	return func(r *ResilientStore) {
		r.breaker.now = now
		r.sleep = sleep
	}
}

// NewResilientStore wraps store. Zero fields in cfg fall back to one attempt,
// a 100ms initial backoff capped at 5s, a threshold of 5 and a 30s reset.
func NewResilientStore(store Store, cfg config.RetryConfig, opts ...ResilientOption) *ResilientStore {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 100 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = max(5*time.Second, cfg.InitialBackoff)
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}

	log := logger.Get().With(zap.String("component", "resilient_store"), zap.String("store", store.Name()))
	r := &ResilientStore{
		store: store,
		cfg:   cfg,
		breaker: &circuitBreaker{
			store:        store.Name(),
			threshold:    cfg.FailureThreshold,
			resetTimeout: cfg.ResetTimeout,
			now:          time.Now,
			logger:       log,
		},
		sleep:  sleepContext,
		logger: log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Unwrap returns the wrapped store.
func (r *ResilientStore) Unwrap() Store {
	return r.store
}

// State returns the circuit breaker state.
func (r *ResilientStore) State() CircuitState {
	return r.breaker.current()
}

// Name returns the wrapped store's name.
func (r *ResilientStore) Name() string {
	return r.store.Name()
}

func (r *ResilientStore) Save(ctx context.Context, stream string, data []byte) error {
	return r.do(ctx, metrics.OpSave, func() error { return r.store.Save(ctx, stream, data) })
}

func (r *ResilientStore) Load(ctx context.Context, stream string) ([]byte, error) {
	var data []byte
	err := r.do(ctx, metrics.OpLoad, func() error {
		var err error
		data, err = r.store.Load(ctx, stream)
		return err
	})
	return data, err
}

func (r *ResilientStore) Delete(ctx context.Context, stream string) error {
	return r.do(ctx, metrics.OpDelete, func() error { return r.store.Delete(ctx, stream) })
}

func (r *ResilientStore) List(ctx context.Context) ([]string, error) {
	var streams []string
	err := r.do(ctx, metrics.OpList, func() error {
		var err error
		streams, err = r.store.List(ctx)
		return err
	})
	return streams, err
}

// Close closes the wrapped store without retrying.
func (r *ResilientStore) Close() error {
	return r.store.Close()
}

func (r *ResilientStore) do(ctx context.Context, operation string, fn func() error) error {
	backoff := r.cfg.InitialBackoff
	var err error
	for attempt := 1; ; attempt++ {
		if !r.breaker.allow() {
			return errors.Wrap(ErrCircuitOpen, errors.ErrorTypeConnection, "checkpoint store unavailable").
				WithDetail("store", r.store.Name()).
				WithDetail("operation", operation)
		}

		err = fn()
		if err == nil || !errors.IsRetryable(err) {
			r.breaker.recordSuccess()
			return err
		}
		r.breaker.recordFailure()

		if attempt >= r.cfg.MaxAttempts || ctx.Err() != nil {
			return err
		}
		r.logger.Debug("retrying checkpoint store operation",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		metrics.StoreRetries.WithLabelValues(r.store.Name(), operation).Inc()

		if serr := r.sleep(ctx, backoff); serr != nil {
			return err
		}
		backoff = min(backoff*2, r.cfg.MaxBackoff)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
