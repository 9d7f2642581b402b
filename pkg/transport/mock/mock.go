// Package mock provides an in-memory mock implementation of
// [transport.Transport] for use in unit tests.
//
// The mock is safe for concurrent use. It records every method call so that
// tests can assert on call counts and captured frames, and it exposes
// exported fields the test can set to control return values.
//
// Typical usage:
//
//	tr := &mock.Transport{}
//	sub, _ := tr.Subscribe(func(ev transport.ParticipantEvent) { ... })
//	tr.EmitEvent(transport.ParticipantEvent{Kind: transport.ParticipantJoined, Name: "Ada"})
package mock

import (
	"context"
	"sync"

	"github.com/voxmeet/voxmeet/pkg/audio"
	"github.com/voxmeet/voxmeet/pkg/transport"
)

// Compile-time interface assertion.
var _ transport.Transport = (*Transport)(nil)

// Transport is a mock implementation of [transport.Transport].
// Set the exported Result/Error fields before use; inspect the Call* and
// Sent* fields after.
type Transport struct {
	mu sync.Mutex

	// JoinError is returned by [Transport.Join].
	JoinError error

	// LeaveError is returned by [Transport.Leave].
	LeaveError error

	// SendAudioError is returned by [Transport.SendAudio].
	SendAudioError error

	// SubscribeError is returned by [Transport.Subscribe].
	SubscribeError error

	// CloseError is returned by [Transport.Close].
	CloseError error

	// Input is the channel returned by [Transport.AudioInput]. Created
	// lazily (buffered, depth 16) on first use if left nil.
	Input chan audio.Frame

	// CallCountJoin records how many times Join was called.
	CallCountJoin int

	// CallCountLeave records how many times Leave was called.
	CallCountLeave int

	// CallCountClose records how many times Close was called.
	CallCountClose int

	// SentFrames holds every frame passed to SendAudio, in order.
	SentFrames []audio.Frame

	// subs holds the active event callbacks keyed by registration id.
	subs    map[int]func(transport.ParticipantEvent)
	nextSub int
}

// Join implements [transport.Transport]. Records the call and returns JoinError.
func (t *Transport) Join(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.CallCountJoin++
	return t.JoinError
}

// Leave implements [transport.Transport]. Records the call and returns LeaveError.
func (t *Transport) Leave(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.CallCountLeave++
	return t.LeaveError
}

// AudioInput implements [transport.Transport].
func (t *Transport) AudioInput() <-chan audio.Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Input == nil {
		t.Input = make(chan audio.Frame, 16)
	}
	return t.Input
}

// SendAudio implements [transport.Transport]. The frame is appended to
// SentFrames unless SendAudioError is set.
func (t *Transport) SendAudio(frame audio.Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.SendAudioError != nil {
		return t.SendAudioError
	}
	t.SentFrames = append(t.SentFrames, frame)
	return nil
}

// Subscribe implements [transport.Transport].
func (t *Transport) Subscribe(cb func(transport.ParticipantEvent)) (transport.Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.SubscribeError != nil {
		return nil, t.SubscribeError
	}
	if t.subs == nil {
		t.subs = make(map[int]func(transport.ParticipantEvent))
	}
	id := t.nextSub
	t.nextSub++
	t.subs[id] = cb
	return &subscription{t: t, id: id}, nil
}

// Close implements [transport.Transport]. Records the call and returns CloseError.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.CallCountClose++
	return t.CloseError
}

// ActiveSubscriptions returns the number of uncancelled subscriptions. Tests
// use this to verify that teardown released every handle.
func (t *Transport) ActiveSubscriptions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// EmitEvent invokes all active subscription callbacks with ev. Use in tests
// to simulate participants joining or leaving.
func (t *Transport) EmitEvent(ev transport.ParticipantEvent) {
	t.mu.Lock()
	cbs := make([]func(transport.ParticipantEvent), 0, len(t.subs))
	for _, cb := range t.subs {
		cbs = append(cbs, cb)
	}
	t.mu.Unlock()
	for _, cb := range cbs {
		cb(ev)
	}
}

type subscription struct {
	t    *Transport
	id   int
	once sync.Once
}

func (s *subscription) Cancel() {
	s.once.Do(func() {
		s.t.mu.Lock()
		delete(s.t.subs, s.id)
		s.t.mu.Unlock()
	})
}
