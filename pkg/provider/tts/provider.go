// Package tts defines the Provider interface for text-to-speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., ElevenLabs) and
// presents a uniform streaming interface: Synthesize accepts one reply text
// and returns a channel of raw PCM chunks as they become available, so the
// pipeline can start playback before synthesis completes.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Voice describes a synthesis voice configuration.
type Voice struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Metadata holds provider-specific voice attributes (gender, accent, ...).
	Metadata map[string]string
}

// Provider is the abstraction over any TTS backend.
//
// Implementations must be safe for concurrent use. Multiple synthesis
// requests may run in parallel (one per meeting).
type Provider interface {
	// Synthesize converts text into speech using voice and returns a channel
	// emitting raw PCM byte chunks as they are synthesised. The channel is
	// closed by the implementation when synthesis completes or ctx is
	// cancelled; callers must drain it to avoid blocking provider
	// goroutines.
	//
	// Returns a non-nil error only if the stream cannot be started. Errors
	// during synthesis are signalled by closing the channel early; callers
	// should check ctx.Err() to distinguish cancellation from provider
	// failure.
	Synthesize(ctx context.Context, text string, voice Voice) (<-chan []byte, error)

	// ListVoices returns the voices available from this provider. The list
	// reflects the provider's current catalogue.
	ListVoices(ctx context.Context) ([]Voice, error)
}
