// Package audio defines the PCM frame type that flows through the Voxmeet
// pipeline and the format-conversion helpers used at the media edges.
//
// Frames carry little-endian 16-bit PCM. The meeting transport produces
// 48 kHz audio (Opus decode output); STT providers generally want 16 kHz
// mono, so the recognizer side downmixes and resamples with the helpers in
// this package.
//
// This package lives under pkg/ because transport adapters outside this
// repository are expected to produce and consume [Frame] values.
package audio

import "time"

// Frame represents a single frame of audio flowing through the pipeline.
// Frames are the atomic unit of audio transport — received from the meeting
// media plane, fed to the recognizer, and produced by the synthesizer for
// egress.
type Frame struct {
	// PCM is little-endian int16 audio data.
	PCM []byte

	// SampleRate in Hz (e.g., 48000 for meeting media, 16000 for STT input).
	SampleRate int

	// Channels: 1 for mono, 2 for stereo.
	Channels int

	// ParticipantID identifies the speaker for ingress frames. Empty for
	// egress (assistant) frames.
	ParticipantID string

	// Timestamp marks when this frame was captured, relative to session start.
	Timestamp time.Duration
}

// Format describes the sample rate and channel count of an audio stream.
type Format struct {
	SampleRate int
	Channels   int
}

// Drain reads from ch until it is closed, discarding all values. Use to
// prevent goroutine leaks when a streaming channel's data is not needed.
func Drain[T any](ch <-chan T) {
	for range ch {
	}
}
