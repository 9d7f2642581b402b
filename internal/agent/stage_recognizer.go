package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/voxmeet/voxmeet/internal/observe"
	"github.com/voxmeet/voxmeet/internal/pipeline"
	"github.com/voxmeet/voxmeet/pkg/audio"
	"github.com/voxmeet/voxmeet/pkg/provider/stt"
)

// recognizerFormat is the PCM format fed to the transcription stream:
// 16 kHz mono, the rate speech models are trained on.
var recognizerFormat = audio.Format{SampleRate: 16000, Channels: 1}

// Recognizer is the speech-to-text stage. It downmixes incoming audio to the
// recognizer format, streams it to the STT provider, and emits each final
// transcript as a text frame.
type Recognizer struct {
	meetingID string
	provider  stt.Provider
	metrics   *observe.Metrics
	log       *slog.Logger

	out func(pipeline.Frame)

	mu      sync.Mutex
	session stt.SessionHandle
	conv    *audio.Converter
	done    chan struct{}
	started bool
}

// Compile-time stage assertions.
var (
	_ pipeline.Stage         = (*Recognizer)(nil)
	_ pipeline.FrameConsumer = (*Recognizer)(nil)
	_ pipeline.FrameProducer = (*Recognizer)(nil)
)

// RecognizerConfig holds the dependencies of a [Recognizer].
type RecognizerConfig struct {
	MeetingID string
	Provider  stt.Provider

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// Logger defaults to [slog.Default].
	Logger *slog.Logger
}

// NewRecognizer creates a [Recognizer].
func NewRecognizer(cfg RecognizerConfig) *Recognizer {
	r := &Recognizer{
		meetingID: cfg.MeetingID,
		provider:  cfg.Provider,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	return r
}

// Name implements [pipeline.Stage].
func (r *Recognizer) Name() string { return "recognizer" }

// SetOutput implements [pipeline.FrameProducer].
func (r *Recognizer) SetOutput(fn func(pipeline.Frame)) { r.out = fn }

// Start implements [pipeline.Stage]. It opens the transcription stream and
// launches the goroutine that forwards final transcripts downstream.
func (r *Recognizer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}

	session, err := r.provider.StartStream(ctx, stt.StreamConfig{
		SampleRate: recognizerFormat.SampleRate,
		Channels:   recognizerFormat.Channels,
	})
	if err != nil {
		return fmt.Errorf("recognizer: start stream: %w", err)
	}

	r.session = session
	r.conv = &audio.Converter{Target: recognizerFormat}
	r.done = make(chan struct{})
	r.started = true

	go func() {
		defer close(r.done)
		for tr := range session.Results() {
			r.metrics.RecordTranscript(context.Background(), r.meetingID)
			r.log.Debug("transcript received",
				"meeting_id", r.meetingID,
				"participant_id", tr.ParticipantID,
				"confidence", tr.Confidence,
			)
			if r.out != nil {
				r.out(pipeline.TextFrame(tr.Text, tr.ParticipantID))
			}
		}
	}()
	return nil
}

// Stop implements [pipeline.Stage]. Closing the STT session ends the results
// channel, which drains the forwarding goroutine.
func (r *Recognizer) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return nil
	}
	r.started = false

	err := r.session.Close()

	select {
	case <-r.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("recognizer: close stream: %w", err)
	}
	return nil
}

// Consume implements [pipeline.FrameConsumer]. Audio frames are downmixed to
// the recognizer format and streamed to the provider; text frames are
// ignored.
func (r *Recognizer) Consume(f pipeline.Frame) error {
	if f.Kind != pipeline.KindAudio {
		return nil
	}

	r.mu.Lock()
	session, conv, started := r.session, r.conv, r.started
	r.mu.Unlock()
	if !started {
		return nil
	}

	converted := conv.Convert(f.Audio)
	if len(converted.PCM) == 0 {
		return nil
	}
	if err := session.SendAudio(converted.PCM); err != nil {
		return fmt.Errorf("recognizer: send audio: %w", err)
	}
	return nil
}
