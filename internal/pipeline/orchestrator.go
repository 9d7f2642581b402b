package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/voxmeet/voxmeet/internal/observe"
)

// ErrAlreadyStarted is returned by [Orchestrator.Start] when the orchestrator
// is already running. The existing wiring and stages are left untouched.
var ErrAlreadyStarted = errors.New("pipeline: orchestrator already started")

// defaultStopBudget bounds how long a single stage may take to stop before
// the orchestrator gives up on it and moves to the next stage.
const defaultStopBudget = 5 * time.Second

// Orchestrator owns an ordered list of stages and their lifecycle. It wires
// adjacent producer/consumer pairs, starts stages first-to-last, and stops
// them in reverse order with a bounded per-stage budget.
//
// All exported methods are safe for concurrent use.
type Orchestrator struct {
	stages     []Stage
	stopBudget time.Duration
	metrics    *observe.Metrics
	log        *slog.Logger

	mu      sync.Mutex
	started bool
}

// Option configures an [Orchestrator] during construction.
type Option func(*Orchestrator)

// WithStopBudget sets the maximum time granted to each stage's Stop call
// during teardown. The default is 5 seconds.
func WithStopBudget(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.stopBudget = d
		}
	}
}

// WithMetrics sets the metrics instance used for frame and teardown
// accounting. When unset, [observe.DefaultMetrics] is used.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithLogger sets the logger used for lifecycle events. The default is
// [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// New creates an Orchestrator over the given stages in processing order.
// The stage list is fixed at construction time.
func New(stages []Stage, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		stages:     stages,
		stopBudget: defaultStopBudget,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	return o
}

// Start wires adjacent stages and starts them first-to-last. If any stage
// fails to start, the already-started stages are stopped in reverse order
// and the original start error is returned.
//
// Calling Start on a running orchestrator returns [ErrAlreadyStarted].
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started {
		return ErrAlreadyStarted
	}

	o.connect()

	for i, st := range o.stages {
		if err := st.Start(ctx); err != nil {
			o.log.Error("stage start failed, unwinding",
				"stage", st.Name(), "error", err)
			o.stopLocked(ctx, i-1)
			return fmt.Errorf("pipeline: start stage %s: %w", st.Name(), err)
		}
		o.log.Debug("stage started", "stage", st.Name())
	}

	o.started = true
	return nil
}

// Stop stops all stages in reverse order. Each stage gets at most the
// configured stop budget; a stage that overruns it is abandoned and teardown
// continues with the next one. All stop errors are collected and joined.
//
// Stop on a never-started or already-stopped orchestrator is a no-op.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.started {
		return nil
	}
	o.started = false

	return o.stopLocked(ctx, len(o.stages)-1)
}

// connect wires each producer stage's output to the consumer that follows it.
// Wiring is idempotent; a second Start attempt re-registers the same
// emission functions.
func (o *Orchestrator) connect() {
	for i := 0; i < len(o.stages)-1; i++ {
		prod, ok := o.stages[i].(FrameProducer)
		if !ok {
			continue
		}
		cons, ok := o.stages[i+1].(FrameConsumer)
		if !ok {
			continue
		}

		stageName := o.stages[i].Name()
		prod.SetOutput(func(f Frame) {
			o.metrics.FramesForwarded.Add(context.Background(), 1,
				metric.WithAttributes(
					attribute.String("stage", stageName),
					attribute.String("kind", f.Kind.String()),
				),
			)
			if err := cons.Consume(f); err != nil {
				o.log.Warn("frame dropped by downstream stage",
					"stage", stageName, "kind", f.Kind.String(), "error", err)
			}
		})
	}
}

// stopLocked stops stages [0..last] in reverse order with the per-stage
// budget. The caller must hold o.mu.
func (o *Orchestrator) stopLocked(ctx context.Context, last int) error {
	var errs []error
	for i := last; i >= 0; i-- {
		st := o.stages[i]

		stopCtx, cancel := context.WithTimeout(ctx, o.stopBudget)
		err := o.stopStage(stopCtx, st)
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				o.metrics.StageStopTimeouts.Add(context.Background(), 1,
					metric.WithAttributes(attribute.String("stage", st.Name())),
				)
				o.log.Warn("stage stop exceeded budget, abandoning",
					"stage", st.Name(), "budget", o.stopBudget)
			} else {
				o.log.Warn("stage stop failed", "stage", st.Name(), "error", err)
			}
			errs = append(errs, fmt.Errorf("pipeline: stop stage %s: %w", st.Name(), err))
			continue
		}
		o.log.Debug("stage stopped", "stage", st.Name())
	}
	return errors.Join(errs...)
}

// stopStage runs st.Stop in its own goroutine so a stage that ignores its
// context cannot stall teardown past the stop budget.
func (o *Orchestrator) stopStage(ctx context.Context, st Stage) error {
	done := make(chan error, 1)
	go func() {
		done <- st.Stop(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
