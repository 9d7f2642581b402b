// Package stt defines the Provider interface for speech-to-text backends.
//
// An STT provider wraps a real-time transcription service (e.g., Deepgram)
// and exposes a uniform streaming interface. The central abstraction is
// [SessionHandle]: once opened, a session accepts raw PCM audio chunks and
// emits final [Transcript] values on its results channel.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"time"
)

// StreamConfig describes the audio format and recognition hints for a new
// transcription session.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz. Common values: 16000
	// (STT-optimised mono), 48000 (meeting media decode output).
	SampleRate int

	// Channels is the number of audio channels. 1 = mono (required by most
	// STT providers). Implementors may downmix stereo internally.
	Channels int

	// Language is the BCP-47 language tag for recognition (e.g., "en-US").
	// An empty string lets the provider auto-detect, if supported.
	Language string
}

// Transcript represents a committed speech-to-text result.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// Confidence is the overall confidence score (0.0–1.0). May be zero if
	// the provider does not report confidence.
	Confidence float64

	// ParticipantID identifies the speaker when the session carries
	// speaker attribution.
	ParticipantID string

	// Timestamp marks when the utterance started, relative to session start.
	Timestamp time.Duration
}

// SessionHandle represents an open streaming transcription session. It is an
// interface so test code can provide mocks without a live provider
// connection.
//
// Callers must call Close when the session is no longer needed; failing to
// do so may leak goroutines and network connections inside the provider.
// All methods must be safe for concurrent use.
type SessionHandle interface {
	// SendAudio delivers a chunk of raw PCM audio bytes for transcription.
	// The chunk must match the SampleRate, Channels, and bit depth agreed
	// in StreamConfig. Calling SendAudio after Close returns an error.
	SendAudio(chunk []byte) error

	// Results returns a read-only channel emitting final transcripts as the
	// provider commits them. The channel is closed when the session ends.
	Results() <-chan Transcript

	// Close terminates the session, flushes pending audio, and releases all
	// associated resources. After Close returns, the Results channel is
	// closed. Calling Close more than once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over any STT backend.
//
// Implementations must be safe for concurrent use; multiple sessions may be
// open simultaneously (one per meeting).
type Provider interface {
	// StartStream opens a new streaming transcription session. The returned
	// SessionHandle is ready to accept audio immediately.
	//
	// Returns an error if the session cannot be established (auth failure,
	// unsupported configuration, or ctx already cancelled). The caller owns
	// the handle and must call Close when done.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}
