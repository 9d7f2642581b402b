package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every backend in a [FallbackGroup] fails or
// sits behind an open circuit breaker.
var ErrAllFailed = errors.New("resilience: all backends failed")

// FallbackConfig configures the per-backend circuit breaker created for each
// entry in a [FallbackGroup]. The Name field is overridden with the backend's
// own name.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// backend pairs a provider value with its dedicated circuit breaker.
type backend[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup holds a primary and zero or more fallback instances of one
// provider type. Calls go to the first backend whose breaker admits them;
// when a backend fails, the next one is tried in registration order.
//
// Backends are registered during startup; once calls are flowing the group
// must not be mutated.
type FallbackGroup[T any] struct {
	backends []backend[T]
	cfg      FallbackConfig
	log      *slog.Logger
}

// NewFallbackGroup creates a [FallbackGroup] with primary as the first
// backend. Additional backends are registered via
// [FallbackGroup.AddFallback].
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	log := cfg.CircuitBreaker.Logger
	if log == nil {
		log = slog.Default()
	}
	fg := &FallbackGroup[T]{cfg: cfg, log: log}
	fg.AddFallback(primaryName, primary)
	return fg
}

// AddFallback appends a backend. Backends are tried in the order they were
// added, primary first.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.backends = append(fg.backends, backend[T]{
		name:    name,
		value:   fallback,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// ExecuteWithResult tries fn against each backend until one succeeds,
// returning its result. Backends with an open breaker are skipped. When
// every backend fails, the error wraps [ErrAllFailed] and names the last
// backend tried. A package-level function because Go methods cannot carry
// their own type parameters.
func ExecuteWithResult[T any, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr  error
		lastName string
		zero     R
	)
	for i := range fg.backends {
		b := &fg.backends[i]
		var result R
		err := b.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(b.value)
			return innerErr
		})
		if err == nil {
			if lastErr != nil {
				fg.log.Info("backend recovered the call after failover",
					"backend", b.name)
			}
			return result, nil
		}
		lastErr, lastName = err, b.name
		if errors.Is(err, ErrCircuitOpen) {
			fg.log.Debug("skipping backend behind open breaker", "backend", b.name)
		} else {
			fg.log.Warn("backend failed, trying next",
				"backend", b.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: last backend %q: %v", ErrAllFailed, lastName, lastErr)
}
