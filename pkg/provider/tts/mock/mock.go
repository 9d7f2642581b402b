// Package mock provides an in-memory mock implementation of [tts.Provider]
// for use in unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/voxmeet/voxmeet/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// SynthesizeCall records the arguments of a single Synthesize invocation.
type SynthesizeCall struct {
	Text  string
	Voice tts.Voice
}

// Provider is a mock [tts.Provider]. Each Synthesize call emits the
// configured Chunks and closes the channel.
type Provider struct {
	mu sync.Mutex

	// Chunks are the PCM chunks emitted per Synthesize call. Defaults to a
	// single non-empty chunk if left nil.
	Chunks [][]byte

	// SynthesizeError is returned by Synthesize when set.
	SynthesizeError error

	// Voices is returned by ListVoices.
	Voices []tts.Voice

	// ListVoicesError is returned by ListVoices when set.
	ListVoicesError error

	// SynthesizeCalls records all Synthesize invocations.
	SynthesizeCalls []SynthesizeCall
}

// Synthesize implements [tts.Provider].
func (p *Provider) Synthesize(ctx context.Context, text string, voice tts.Voice) (<-chan []byte, error) {
	p.mu.Lock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Text: text, Voice: voice})
	chunks := p.Chunks
	err := p.SynthesizeError
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if chunks == nil {
		chunks = [][]byte{{0, 0, 0, 0}}
	}

	out := make(chan []byte, len(chunks))
	go func() {
		defer close(out)
		for _, c := range chunks {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// ListVoices implements [tts.Provider].
func (p *Provider) ListVoices(_ context.Context) ([]tts.Voice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ListVoicesError != nil {
		return nil, p.ListVoicesError
	}
	return p.Voices, nil
}
