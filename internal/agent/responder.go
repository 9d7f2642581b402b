package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/voxmeet/voxmeet/internal/observe"
	"github.com/voxmeet/voxmeet/internal/pipeline"
	"github.com/voxmeet/voxmeet/internal/store"
	"github.com/voxmeet/voxmeet/pkg/provider/llm"
)

// fallbackReply is spoken when the language model fails to produce a
// completion.
const fallbackReply = "I'm having trouble processing that right now. Could you please repeat?"

// promptPrefix frames each utterance before it is sent to the language model.
const promptPrefix = "You are a helpful AI assistant in a video chat meeting. Respond naturally and helpfully to: "

// Responder turns transcripts into spoken replies. As a pipeline stage it
// consumes text frames (transcripts) and emits exactly one text frame (the
// reply) per non-empty transcript. [Responder.Speak] bypasses the language
// model and emits text downstream directly; the membership watcher uses it
// for greetings.
type Responder struct {
	meetingID string
	provider  llm.Provider
	recorder  *store.TranscriptLog
	metrics   *observe.Metrics
	log       *slog.Logger

	out func(pipeline.Frame)
}

// Compile-time stage assertions.
var (
	_ pipeline.Stage         = (*Responder)(nil)
	_ pipeline.FrameConsumer = (*Responder)(nil)
	_ pipeline.FrameProducer = (*Responder)(nil)
)

// ResponderConfig holds the dependencies of a [Responder].
type ResponderConfig struct {
	// MeetingID scopes logs, metrics, and transcript records.
	MeetingID string

	// Provider generates the replies. May be a resilience fallback chain.
	Provider llm.Provider

	// Recorder persists utterances and replies. Optional; a nil or disabled
	// log is skipped.
	Recorder *store.TranscriptLog

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// Logger defaults to [slog.Default].
	Logger *slog.Logger
}

// NewResponder creates a [Responder].
func NewResponder(cfg ResponderConfig) *Responder {
	r := &Responder{
		meetingID: cfg.MeetingID,
		provider:  cfg.Provider,
		recorder:  cfg.Recorder,
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
func (r *Responder) Name() string { return "responder" }

// Start implements [pipeline.Stage]. The responder has no background work.
func (r *Responder) Start(context.Context) error { return nil }

// Stop implements [pipeline.Stage].
func (r *Responder) Stop(context.Context) error { return nil }

// SetOutput implements [pipeline.FrameProducer].
func (r *Responder) SetOutput(fn func(pipeline.Frame)) { r.out = fn }

// Consume implements [pipeline.FrameConsumer]. Audio frames and blank
// transcripts are dropped; every other transcript produces exactly one reply
// frame downstream.
func (r *Responder) Consume(f pipeline.Frame) error {
	if f.Kind != pipeline.KindText {
		return nil
	}
	transcript := strings.TrimSpace(f.Text)
	if transcript == "" {
		return nil
	}

	ctx := context.Background()
	r.record(ctx, f.ParticipantID, store.RoleParticipant, transcript)

	reply, err := r.Respond(ctx, transcript)
	if err != nil {
		// Respond only fails on a cancelled context; there is nothing to say.
		return err
	}

	r.record(ctx, "", store.RoleAgent, reply)
	r.emit(reply)
	return nil
}

// Respond builds the instructional prompt around transcript and returns the
// language model's completion verbatim. When the model fails, it logs the
// error, counts the fallback, and returns the canned apology with a nil
// error so the agent always answers.
func (r *Responder) Respond(ctx context.Context, transcript string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("responder: %w", err)
	}

	start := time.Now()
	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		Prompt: promptPrefix + transcript,
	})
	r.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		r.log.Error("completion failed, using fallback reply",
			"meeting_id", r.meetingID, "error", err)
		r.metrics.ResponderFallbacks.Add(ctx, 1,
			metric.WithAttributes(attribute.String("meeting_id", r.meetingID)),
		)
		return fallbackReply, nil
	}
	return resp.Content, nil
}

// Speak emits text downstream without consulting the language model.
func (r *Responder) Speak(text string) {
	r.record(context.Background(), "", store.RoleAgent, text)
	r.emit(text)
}

func (r *Responder) emit(text string) {
	if r.out == nil {
		r.log.Warn("responder has no downstream, dropping reply",
			"meeting_id", r.meetingID)
		return
	}
	r.out(pipeline.TextFrame(text, ""))
}

// record appends an entry to the transcript log, best effort.
func (r *Responder) record(ctx context.Context, participantID string, role store.Role, text string) {
	if r.recorder == nil {
		return
	}
	err := r.recorder.Append(ctx, store.Entry{
		MeetingID:     r.meetingID,
		ParticipantID: participantID,
		Role:          role,
		Text:          text,
	})
	if err != nil {
		r.log.Warn("transcript append failed",
			"meeting_id", r.meetingID, "error", err)
	}
}
