package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// ErrAllFailed is returned when every entry in a [FallbackGroup] fails or has
// an open circuit breaker.
var ErrAllFailed = errors.New("resilience: all nodes failed")

// FallbackConfig configures the breaker created for each entry of a
// [FallbackGroup]. Name is set per entry.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup holds named instances of the same kind of collaborator, each
// behind its own breaker. Calls try the entries in registration order and
// stop at the first success.
type FallbackGroup[T any] struct {
	cfg FallbackConfig

	mu      sync.RWMutex
	entries []*fallbackEntry[T]
}

// NewFallbackGroup creates an empty group.
func NewFallbackGroup[T any](cfg FallbackConfig) *FallbackGroup[T] {
	return &FallbackGroup[T]{cfg: cfg}
}

// Add appends an entry. Adding a name twice replaces the earlier entry and
// resets its breaker.
func (fg *FallbackGroup[T]) Add(name string, value T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	e := &fallbackEntry[T]{name: name, value: value, breaker: NewCircuitBreaker(cbCfg)}

	fg.mu.Lock()
	defer fg.mu.Unlock()
	for i, old := range fg.entries {
		if old.name == name {
			fg.entries[i] = e
			return
		}
	}
	fg.entries = append(fg.entries, e)
}

// Get returns the entry registered as name.
func (fg *FallbackGroup[T]) Get(name string) (T, bool) {
	fg.mu.RLock()
	defer fg.mu.RUnlock()
	for _, e := range fg.entries {
		if e.name == name {
			return e.value, true
		}
	}
	var zero T
	return zero, false
}

// Names returns the entry names in registration order.
func (fg *FallbackGroup[T]) Names() []string {
	fg.mu.RLock()
	defer fg.mu.RUnlock()
	names := make([]string, len(fg.entries))
	for i, e := range fg.entries {
		names[i] = e.name
	}
	return names
}

// States reports the breaker state of every entry.
func (fg *FallbackGroup[T]) States() map[string]State {
	fg.mu.RLock()
	defer fg.mu.RUnlock()
	states := make(map[string]State, len(fg.entries))
	for _, e := range fg.entries {
		states[e.name] = e.breaker.State()
	}
	return states
}

// Healthy returns the names of entries whose breaker is not open.
func (fg *FallbackGroup[T]) Healthy() []string {
	fg.mu.RLock()
	defer fg.mu.RUnlock()
	var names []string
	for _, e := range fg.entries {
		if e.breaker.State() != StateOpen {
			names = append(names, e.name)
		}
	}
	return names
}

func (fg *FallbackGroup[T]) snapshot() []*fallbackEntry[T] {
	fg.mu.RLock()
	defer fg.mu.RUnlock()
	return slices.Clone(fg.entries)
}

// Execute tries fn against each entry until one succeeds. Entries with an
// open breaker are skipped. Errors rejected by the breaker's IsFailure end the
// attempt immediately: they describe the request, not the node. When every
// entry fails the result wraps [ErrAllFailed] and the last error.
func (fg *FallbackGroup[T]) Execute(ctx context.Context, fn func(ctx context.Context, name string, v T) error) error {
	_, err := ExecuteWithResult(ctx, fg, func(ctx context.Context, name string, v T) (struct{}, error) {
		return struct{}{}, fn(ctx, name, v)
	})
	return err
}

// ExecuteWithResult is [FallbackGroup.Execute] for calls that produce a
// value. It is a function because methods cannot have type parameters.
func ExecuteWithResult[T, R any](ctx context.Context, fg *FallbackGroup[T], fn func(ctx context.Context, name string, v T) (R, error)) (R, error) {
	var (
		zero    R
		lastErr error
	)
	entries := fg.snapshot()
	if len(entries) == 0 {
		return zero, fmt.Errorf("%w: group is empty", ErrAllFailed)
	}

	for _, e := range entries {
		var result R
		err := e.breaker.Execute(ctx, func(ctx context.Context) error {
			var innerErr error
			result, innerErr = fn(ctx, e.name, e.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if !errors.Is(err, ErrCircuitOpen) && !e.breaker.isFailure(err) {
			return zero, err
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("resilience: skipping node, circuit open", "node", e.name)
		} else {
			slog.Warn("resilience: node failed, trying next", "node", e.name, "err", err)
		}
	}
	return zero, fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
}
