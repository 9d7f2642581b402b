// Package mock provides in-memory mock implementations of [stt.Provider]
// and [stt.SessionHandle] for use in unit tests.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/voxmeet/voxmeet/pkg/provider/stt"
)

// Compile-time interface assertions.
var (
	_ stt.Provider      = (*Provider)(nil)
	_ stt.SessionHandle = (*Session)(nil)
)

// Session is a mock [stt.SessionHandle]. Tests feed transcripts through
// EmitResult and inspect SentChunks.
type Session struct {
	mu sync.Mutex

	// SendAudioError is returned by SendAudio when set.
	SendAudioError error

	// SentChunks records every chunk passed to SendAudio.
	SentChunks [][]byte

	// CallCountClose records how many times Close was called.
	CallCountClose int

	results chan stt.Transcript
	once    sync.Once
}

// NewSession creates a Session with a buffered results channel.
func NewSession() *Session {
	return &Session{results: make(chan stt.Transcript, 16)}
}

// SendAudio implements [stt.SessionHandle].
func (s *Session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SendAudioError != nil {
		return s.SendAudioError
	}
	s.SentChunks = append(s.SentChunks, chunk)
	return nil
}

// Results implements [stt.SessionHandle].
func (s *Session) Results() <-chan stt.Transcript { return s.results }

// Close implements [stt.SessionHandle]. Closes the results channel.
func (s *Session) Close() error {
	s.mu.Lock()
	s.CallCountClose++
	s.mu.Unlock()
	s.once.Do(func() { close(s.results) })
	return nil
}

// EmitResult delivers a transcript to the session's results channel.
func (s *Session) EmitResult(t stt.Transcript) {
	s.results <- t
}

// Provider is a mock [stt.Provider].
type Provider struct {
	mu sync.Mutex

	// Session is returned by StartStream. Created lazily if left nil.
	Session *Session

	// StartStreamError is returned by StartStream when set.
	StartStreamError error

	// StartStreamCalls records the configs passed to StartStream.
	StartStreamCalls []stt.StreamConfig
}

// StartStream implements [stt.Provider].
func (p *Provider) StartStream(_ context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StartStreamCalls = append(p.StartStreamCalls, cfg)
	if p.StartStreamError != nil {
		return nil, p.StartStreamError
	}
	if p.Session == nil {
		p.Session = NewSession()
	}
	return p.Session, nil
}

// ErrClosed is a convenience error tests can assign to SendAudioError.
var ErrClosed = errors.New("mock stt: session closed")
