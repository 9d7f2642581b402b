package agent

import (
	"context"
	"log/slog"
	"sync"

	"github.com/voxmeet/voxmeet/internal/pipeline"
	"github.com/voxmeet/voxmeet/pkg/transport"
)

// TransportSource is the first pipeline stage. It pumps incoming audio from
// the transport into the pipeline. Joining and leaving the meeting is the
// session's job, not the stage's; Start only begins draining the audio input.
type TransportSource struct {
	tr  transport.Transport
	log *slog.Logger

	out func(pipeline.Frame)

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// Compile-time stage assertions.
var (
	_ pipeline.Stage         = (*TransportSource)(nil)
	_ pipeline.FrameProducer = (*TransportSource)(nil)
)

// NewTransportSource creates the ingress stage over tr.
func NewTransportSource(tr transport.Transport, log *slog.Logger) *TransportSource {
	if log == nil {
		log = slog.Default()
	}
	return &TransportSource{tr: tr, log: log}
}

// Name implements [pipeline.Stage].
func (s *TransportSource) Name() string { return "transport-source" }

// SetOutput implements [pipeline.FrameProducer].
func (s *TransportSource) SetOutput(fn func(pipeline.Frame)) { s.out = fn }

// Start implements [pipeline.Stage]. It launches the pump goroutine that
// forwards frames from the transport's audio input until Stop is called or
// the input channel closes.
func (s *TransportSource) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.started = true

	go func() {
		defer close(s.done)
		for {
			select {
			case <-pumpCtx.Done():
				return
			case f, ok := <-s.tr.AudioInput():
				if !ok {
					s.log.Debug("transport audio input closed")
					return
				}
				if s.out != nil {
					s.out(pipeline.AudioFrame(f))
				}
			}
		}
	}()
	return nil
}

// Stop implements [pipeline.Stage]. It halts the pump and waits for it to
// drain, bounded by ctx.
func (s *TransportSource) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false
	s.cancel()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TransportSink is the last pipeline stage. It plays synthesized audio back
// into the meeting through the transport.
type TransportSink struct {
	tr  transport.Transport
	log *slog.Logger
}

// Compile-time stage assertions.
var (
	_ pipeline.Stage         = (*TransportSink)(nil)
	_ pipeline.FrameConsumer = (*TransportSink)(nil)
)

// NewTransportSink creates the egress stage over tr.
func NewTransportSink(tr transport.Transport, log *slog.Logger) *TransportSink {
	if log == nil {
		log = slog.Default()
	}
	return &TransportSink{tr: tr, log: log}
}

// Name implements [pipeline.Stage].
func (s *TransportSink) Name() string { return "transport-sink" }

// Start implements [pipeline.Stage].
func (s *TransportSink) Start(context.Context) error { return nil }

// Stop implements [pipeline.Stage].
func (s *TransportSink) Stop(context.Context) error { return nil }

// Consume implements [pipeline.FrameConsumer]. Text frames are ignored; the
// sink only plays audio.
func (s *TransportSink) Consume(f pipeline.Frame) error {
	if f.Kind != pipeline.KindAudio {
		return nil
	}
	return s.tr.SendAudio(f.Audio)
}
