package agent

import (
	"sync"
	"testing"
	"time"

	"github.com/voxmeet/voxmeet/pkg/transport"
	trmock "github.com/voxmeet/voxmeet/pkg/transport/mock"
)

type recordingSpeaker struct {
	mu    sync.Mutex
	lines []string
}

func (s *recordingSpeaker) Speak(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, text)
}

func (s *recordingSpeaker) spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// blockingSpeaker records lines and blocks each Speak until release closes.
type blockingSpeaker struct {
	recordingSpeaker
	started chan struct{}
	release chan struct{}
}

func (s *blockingSpeaker) Speak(text string) {
	select {
	case s.started <- struct{}{}:
	default:
	}
	<-s.release
	s.recordingSpeaker.Speak(text)
}

func TestWatcherGreetsEachJoin(t *testing.T) {
	t.Parallel()

	tr := &trmock.Transport{}
	sp := &recordingSpeaker{}
	w := NewMembershipWatcher("agent-meet-1", tr, sp, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	tr.EmitEvent(transport.ParticipantEvent{
		Kind: transport.ParticipantJoined, ParticipantID: "p1", Name: "Ada",
	})
	tr.EmitEvent(transport.ParticipantEvent{
		Kind: transport.ParticipantJoined, ParticipantID: "p2", Name: "Grace",
	})

	// Stop drains the greeting queue, so afterwards every queued welcome has
	// been spoken.
	w.Stop()

	got := sp.spoken()
	want := []string{
		"Welcome Ada! I'm your AI assistant. How can I help you today?",
		"Welcome Grace! I'm your AI assistant. How can I help you today?",
	}
	if len(got) != len(want) {
		t.Fatalf("spoke %d lines, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWatcherSkipsOwnJoin(t *testing.T) {
	t.Parallel()

	tr := &trmock.Transport{}
	sp := &recordingSpeaker{}
	w := NewMembershipWatcher("agent-meet-1", tr, sp, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	tr.EmitEvent(transport.ParticipantEvent{
		Kind: transport.ParticipantJoined, ParticipantID: "agent-meet-1", Name: "AI Assistant",
	})
	w.Stop()

	if lines := sp.spoken(); len(lines) != 0 {
		t.Errorf("greeted own join: %v", lines)
	}
}

func TestWatcherIgnoresLeaves(t *testing.T) {
	t.Parallel()

	tr := &trmock.Transport{}
	sp := &recordingSpeaker{}
	w := NewMembershipWatcher("agent-meet-1", tr, sp, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	tr.EmitEvent(transport.ParticipantEvent{
		Kind: transport.ParticipantLeft, ParticipantID: "p1", Name: "Ada",
	})
	w.Stop()

	if lines := sp.spoken(); len(lines) != 0 {
		t.Errorf("spoke on leave: %v", lines)
	}
}

func TestWatcherGreetingDoesNotBlockEvents(t *testing.T) {
	t.Parallel()

	tr := &trmock.Transport{}
	sp := &blockingSpeaker{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	w := NewMembershipWatcher("agent-meet-1", tr, sp, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	tr.EmitEvent(transport.ParticipantEvent{
		Kind: transport.ParticipantJoined, ParticipantID: "p1", Name: "Ada",
	})

	// Wait until the greeter is stuck inside Speak, then verify further event
	// delivery returns promptly instead of queueing behind the synthesis.
	select {
	case <-sp.started:
	case <-time.After(2 * time.Second):
		t.Fatal("greeter never started speaking")
	}

	delivered := make(chan struct{})
	go func() {
		tr.EmitEvent(transport.ParticipantEvent{
			Kind: transport.ParticipantJoined, ParticipantID: "p2", Name: "Grace",
		})
		close(delivered)
	}()
	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("event delivery blocked behind an in-flight greeting")
	}

	close(sp.release)
	w.Stop()

	got := sp.spoken()
	want := []string{
		"Welcome Ada! I'm your AI assistant. How can I help you today?",
		"Welcome Grace! I'm your AI assistant. How can I help you today?",
	}
	if len(got) != len(want) {
		t.Fatalf("spoke %d lines, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWatcherStopReleasesSubscription(t *testing.T) {
	t.Parallel()

	tr := &trmock.Transport{}
	sp := &recordingSpeaker{}
	w := NewMembershipWatcher("agent-meet-1", tr, sp, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := tr.ActiveSubscriptions(); got != 1 {
		t.Fatalf("ActiveSubscriptions = %d, want 1", got)
	}

	w.Stop()
	w.Stop() // idempotent

	if got := tr.ActiveSubscriptions(); got != 0 {
		t.Errorf("ActiveSubscriptions after Stop = %d, want 0", got)
	}

	tr.EmitEvent(transport.ParticipantEvent{
		Kind: transport.ParticipantJoined, ParticipantID: "p1", Name: "Ada",
	})
	if lines := sp.spoken(); len(lines) != 0 {
		t.Errorf("spoke after Stop: %v", lines)
	}
}

func TestWatcherDoubleStart(t *testing.T) {
	t.Parallel()

	tr := &trmock.Transport{}
	w := NewMembershipWatcher("agent-meet-1", tr, &recordingSpeaker{}, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := w.Start(); err == nil {
		t.Fatal("second Start succeeded, want error")
	}
}
