package pipeline

import "context"

// Stage is a single processing step in a pipeline. Stages are started
// first-to-last and stopped last-to-first by the [Orchestrator].
type Stage interface {
	// Name is a short label used in logs and error messages.
	Name() string

	// Start transitions the stage into its running state. It must return
	// promptly; long-running work belongs in goroutines owned by the stage.
	Start(ctx context.Context) error

	// Stop releases the stage's resources. It must respect ctx cancellation
	// and be safe to call after a failed or absent Start.
	Stop(ctx context.Context) error
}

// FrameConsumer is implemented by stages that accept frames from the
// preceding stage.
type FrameConsumer interface {
	// Consume processes one frame. It is called synchronously from the
	// upstream stage's emission path; implementations that need to block
	// should buffer internally.
	Consume(Frame) error
}

// FrameProducer is implemented by stages that emit frames to the following
// stage. The orchestrator registers the downstream emission function before
// any stage is started.
type FrameProducer interface {
	// SetOutput registers the function the stage calls to emit a frame
	// downstream. It is called at most once, before Start.
	SetOutput(func(Frame))
}
