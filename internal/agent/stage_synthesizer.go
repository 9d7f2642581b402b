package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voxmeet/voxmeet/internal/observe"
	"github.com/voxmeet/voxmeet/internal/pipeline"
	"github.com/voxmeet/voxmeet/pkg/audio"
	"github.com/voxmeet/voxmeet/pkg/provider/tts"
)

// synthFormat is the PCM format produced by the synthesizer: 16 kHz mono,
// matching the provider's pcm_16000 output. The transport upsamples for the
// media plane.
var synthFormat = audio.Format{SampleRate: 16000, Channels: 1}

// Synthesizer is the text-to-speech stage. Each consumed text frame is
// synthesized and streamed downstream as audio frames.
type Synthesizer struct {
	meetingID string
	provider  tts.Provider
	voice     tts.Voice
	metrics   *observe.Metrics
	log       *slog.Logger

	out func(pipeline.Frame)

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// Compile-time stage assertions.
var (
	_ pipeline.Stage         = (*Synthesizer)(nil)
	_ pipeline.FrameConsumer = (*Synthesizer)(nil)
	_ pipeline.FrameProducer = (*Synthesizer)(nil)
)

// SynthesizerConfig holds the dependencies of a [Synthesizer].
type SynthesizerConfig struct {
	MeetingID string
	Provider  tts.Provider
	Voice     tts.Voice

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// Logger defaults to [slog.Default].
	Logger *slog.Logger
}

// NewSynthesizer creates a [Synthesizer].
func NewSynthesizer(cfg SynthesizerConfig) *Synthesizer {
	s := &Synthesizer{
		meetingID: cfg.MeetingID,
		provider:  cfg.Provider,
		voice:     cfg.Voice,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Name implements [pipeline.Stage].
func (s *Synthesizer) Name() string { return "synthesizer" }

// SetOutput implements [pipeline.FrameProducer].
func (s *Synthesizer) SetOutput(fn func(pipeline.Frame)) { s.out = fn }

// Start implements [pipeline.Stage].
func (s *Synthesizer) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.started = true
	return nil
}

// Stop implements [pipeline.Stage]. In-flight synthesis streams are
// cancelled; Stop waits for them to wind down, bounded by ctx.
func (s *Synthesizer) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume implements [pipeline.FrameConsumer]. Text frames are synthesized
// synchronously so replies reach the meeting in order; audio frames are
// ignored.
func (s *Synthesizer) Consume(f pipeline.Frame) error {
	if f.Kind != pipeline.KindText || f.Text == "" {
		return nil
	}

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	start := time.Now()
	chunks, err := s.provider.Synthesize(ctx, f.Text, s.voice)
	if err != nil {
		s.metrics.RecordProviderError(ctx, s.voice.Name, "tts")
		return fmt.Errorf("synthesizer: %w", err)
	}

	for chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		if s.out != nil {
			s.out(pipeline.AudioFrame(audio.Frame{
				PCM:        chunk,
				SampleRate: synthFormat.SampleRate,
				Channels:   synthFormat.Channels,
			}))
		}
	}
	s.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	return nil
}
