package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordStage is a minimal Stage that records lifecycle calls in a shared log.
type recordStage struct {
	name     string
	startErr error
	stopErr  error
	stopWait time.Duration

	mu  *sync.Mutex
	log *[]string

	out func(Frame)

	consumed []Frame
}

func newRecordStage(name string, mu *sync.Mutex, log *[]string) *recordStage {
	return &recordStage{name: name, mu: mu, log: log}
}

func (s *recordStage) Name() string { return s.name }

func (s *recordStage) Start(context.Context) error {
	s.mu.Lock()
	*s.log = append(*s.log, "start:"+s.name)
	s.mu.Unlock()
	return s.startErr
}

func (s *recordStage) Stop(ctx context.Context) error {
	if s.stopWait > 0 {
		select {
		case <-time.After(s.stopWait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	*s.log = append(*s.log, "stop:"+s.name)
	s.mu.Unlock()
	return s.stopErr
}

func (s *recordStage) SetOutput(fn func(Frame)) { s.out = fn }

func (s *recordStage) Consume(f Frame) error {
	s.mu.Lock()
	s.consumed = append(s.consumed, f)
	s.mu.Unlock()
	return nil
}

func TestOrchestratorStartOrderAndStopOrder(t *testing.T) {
	t.Parallel()

	var (
		mu  sync.Mutex
		log []string
	)
	a := newRecordStage("a", &mu, &log)
	b := newRecordStage("b", &mu, &log)
	c := newRecordStage("c", &mu, &log)

	o := New([]Stage{a, b, c})
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := o.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	want := []string{"start:a", "start:b", "start:c", "stop:c", "stop:b", "stop:a"}
	if strings.Join(log, ",") != strings.Join(want, ",") {
		t.Errorf("lifecycle order = %v, want %v", log, want)
	}
}

func TestOrchestratorSecondStartReturnsSentinel(t *testing.T) {
	t.Parallel()

	var (
		mu  sync.Mutex
		log []string
	)
	a := newRecordStage("a", &mu, &log)
	b := newRecordStage("b", &mu, &log)

	o := New([]Stage{a, b})
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := o.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start() error = %v, want ErrAlreadyStarted", err)
	}

	// The pipeline must remain wired and usable after the rejected Start.
	a.out(TextFrame("hello", "p1"))
	mu.Lock()
	got := len(b.consumed)
	mu.Unlock()
	if got != 1 {
		t.Fatalf("downstream consumed %d frames after rejected Start, want 1", got)
	}
	if err := o.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestOrchestratorWiresAdjacentStages(t *testing.T) {
	t.Parallel()

	var (
		mu  sync.Mutex
		log []string
	)
	a := newRecordStage("a", &mu, &log)
	b := newRecordStage("b", &mu, &log)

	o := New([]Stage{a, b})
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer o.Stop(context.Background())

	a.out(TextFrame("hello", "p1"))

	mu.Lock()
	defer mu.Unlock()
	if len(b.consumed) != 1 {
		t.Fatalf("downstream consumed %d frames, want 1", len(b.consumed))
	}
	if b.consumed[0].Text != "hello" || b.consumed[0].Kind != KindText {
		t.Errorf("consumed frame = %+v", b.consumed[0])
	}
}

func TestOrchestratorStartFailureUnwinds(t *testing.T) {
	t.Parallel()

	var (
		mu  sync.Mutex
		log []string
	)
	a := newRecordStage("a", &mu, &log)
	b := newRecordStage("b", &mu, &log)
	c := newRecordStage("c", &mu, &log)
	c.startErr = errors.New("boom")

	o := New([]Stage{a, b, c})
	err := o.Start(context.Background())
	if err == nil {
		t.Fatal("Start() = nil, want error")
	}
	if !strings.Contains(err.Error(), "stage c") {
		t.Errorf("Start() error = %v, want it to name stage c", err)
	}

	want := []string{"start:a", "start:b", "start:c", "stop:b", "stop:a"}
	if strings.Join(log, ",") != strings.Join(want, ",") {
		t.Errorf("lifecycle order = %v, want %v", log, want)
	}

	// A failed Start leaves the orchestrator stopped; Stop is a no-op.
	if err := o.Stop(context.Background()); err != nil {
		t.Errorf("Stop() after failed Start error = %v", err)
	}
}

func TestOrchestratorStopCollectsErrors(t *testing.T) {
	t.Parallel()

	var (
		mu  sync.Mutex
		log []string
	)
	a := newRecordStage("a", &mu, &log)
	a.stopErr = errors.New("a failed")
	b := newRecordStage("b", &mu, &log)
	b.stopErr = errors.New("b failed")
	c := newRecordStage("c", &mu, &log)

	o := New([]Stage{a, b, c})
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	err := o.Stop(context.Background())
	if err == nil {
		t.Fatal("Stop() = nil, want joined error")
	}
	if !strings.Contains(err.Error(), "a failed") || !strings.Contains(err.Error(), "b failed") {
		t.Errorf("Stop() error = %v, want both stage failures", err)
	}

	// All three stages must have been attempted despite the failures.
	want := []string{"start:a", "start:b", "start:c", "stop:c", "stop:b", "stop:a"}
	if strings.Join(log, ",") != strings.Join(want, ",") {
		t.Errorf("lifecycle order = %v, want %v", log, want)
	}
}

func TestOrchestratorStopBudget(t *testing.T) {
	t.Parallel()

	var (
		mu  sync.Mutex
		log []string
	)
	a := newRecordStage("a", &mu, &log)
	b := newRecordStage("b", &mu, &log)
	b.stopWait = time.Minute // never finishes within budget

	o := New([]Stage{a, b}, WithStopBudget(20*time.Millisecond))
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	start := time.Now()
	err := o.Stop(context.Background())
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Stop() took %v, want bounded by budget", elapsed)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Stop() error = %v, want DeadlineExceeded", err)
	}

	// Stage a must still have been stopped after b overran its budget.
	mu.Lock()
	defer mu.Unlock()
	found := false
	for _, entry := range log {
		if entry == "stop:a" {
			found = true
		}
	}
	if !found {
		t.Error("stage a was not stopped after stage b overran its budget")
	}
}

func TestOrchestratorStopWithoutStartIsNoop(t *testing.T) {
	t.Parallel()

	var (
		mu  sync.Mutex
		log []string
	)
	a := newRecordStage("a", &mu, &log)

	o := New([]Stage{a})
	if err := o.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() before Start error = %v", err)
	}
	if len(log) != 0 {
		t.Errorf("lifecycle log = %v, want empty", log)
	}

	// Double Stop after a full cycle is also a no-op.
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := o.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := o.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}
