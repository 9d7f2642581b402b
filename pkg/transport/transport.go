// Package transport defines the duplex channel to a meeting's media and
// event plane.
//
// A [Transport] is both the ingress and the egress of the assistant's
// pipeline: it delivers participant audio and membership events, and it
// accepts synthesized audio for playback into the meeting. Implementations
// wrap a concrete media gateway (see transport/rtk); tests use
// transport/mock.
//
// Membership notifications use explicit [Subscription] handles. The owning
// session stores the handles it takes out and cancels them during teardown;
// an uncancelled subscription is a resource leak.
//
// This package lives under pkg/ because external media-gateway adapters are
// expected to implement [Transport].
package transport

import (
	"context"

	"github.com/voxmeet/voxmeet/pkg/audio"
)

// EventKind classifies participant membership events.
type EventKind int

const (
	// ParticipantJoined is emitted when a participant enters the meeting.
	ParticipantJoined EventKind = iota

	// ParticipantLeft is emitted when a participant leaves the meeting.
	ParticipantLeft
)

// String returns the human-readable name of the event kind.
func (k EventKind) String() string {
	switch k {
	case ParticipantJoined:
		return "joined"
	case ParticipantLeft:
		return "left"
	default:
		return "unknown"
	}
}

// ParticipantEvent describes a membership change in the meeting.
type ParticipantEvent struct {
	// Kind indicates whether the participant joined or left.
	Kind EventKind

	// ParticipantID is the gateway-assigned unique identifier.
	ParticipantID string

	// Name is the participant's display name.
	Name string
}

// Subscription is a handle to an active participant-event registration.
// Cancel releases the registration; calling Cancel more than once is safe.
type Subscription interface {
	Cancel()
}

// Transport is the bidirectional channel to one meeting's media plane.
//
// A Transport is created per meeting and owned by exactly one agent session.
// All methods must be safe for concurrent use.
type Transport interface {
	// Join enters the meeting as the assistant participant. It blocks until
	// the gateway acknowledges the join or ctx is cancelled. Audio flows
	// only after a successful Join.
	Join(ctx context.Context) error

	// Leave exits the meeting. Calling Leave on a transport that never
	// joined, or twice, is a no-op and returns nil.
	Leave(ctx context.Context) error

	// AudioInput returns the channel delivering participant audio frames.
	// The channel is closed when the transport closes.
	AudioInput() <-chan audio.Frame

	// SendAudio queues a synthesized frame for playback into the meeting.
	// Frames sent before Join or after Close are dropped with an error.
	SendAudio(frame audio.Frame) error

	// Subscribe registers cb for participant membership events and returns
	// a cancellation handle. Multiple subscriptions may be active at once;
	// cb is invoked on an internal goroutine and must not block.
	Subscribe(cb func(ParticipantEvent)) (Subscription, error)

	// Close tears down the gateway connection and closes the audio input
	// channel. Safe to call more than once; subsequent calls return nil.
	Close() error
}
