// Package pipeline provides the frame model and stage orchestration for a
// meeting agent's media/text processing chain.
//
// A pipeline is an ordered list of [Stage] values. Stages that implement
// [FrameProducer] are wired to the [FrameConsumer] that follows them, so
// frames flow strictly first-to-last with no reordering or batching. The
// [Orchestrator] owns stage lifecycle: it connects the chain, starts stages
// in order, and stops them in reverse.
package pipeline

import (
	"time"

	"github.com/voxmeet/voxmeet/pkg/audio"
)

// Kind discriminates the payload carried by a [Frame].
type Kind int

const (
	// KindAudio marks a frame carrying PCM audio.
	KindAudio Kind = iota

	// KindText marks a frame carrying a transcript or a reply.
	KindText
)

// String returns the human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Frame is the unit of data passed between pipeline stages. It is a tagged
// union: Kind selects whether Audio or Text holds the payload.
type Frame struct {
	Kind Kind

	// Audio is the PCM payload when Kind is [KindAudio].
	Audio audio.Frame

	// Text is the transcript or reply when Kind is [KindText].
	Text string

	// ParticipantID identifies the participant the payload originated from.
	// Empty for frames synthesized by the agent itself.
	ParticipantID string

	// Timestamp is when the payload entered the pipeline.
	Timestamp time.Time
}

// AudioFrame wraps a PCM frame as a pipeline [Frame].
func AudioFrame(f audio.Frame) Frame {
	return Frame{
		Kind:          KindAudio,
		Audio:         f,
		ParticipantID: f.ParticipantID,
		Timestamp:     time.Now(),
	}
}

// TextFrame wraps a text payload as a pipeline [Frame].
func TextFrame(text, participantID string) Frame {
	return Frame{
		Kind:          KindText,
		Text:          text,
		ParticipantID: participantID,
		Timestamp:     time.Now(),
	}
}
