package agent

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/voxmeet/voxmeet/pkg/transport"
)

// welcomeFormat is the greeting spoken when a participant joins.
const welcomeFormat = "Welcome %s! I'm your AI assistant. How can I help you today?"

// greetingQueue bounds the number of pending greetings. A join burst beyond
// this drops greetings rather than blocking the transport's event goroutine.
const greetingQueue = 16

// Speaker is the responder capability the watcher needs: emitting text into
// the pipeline without a language-model round trip.
type Speaker interface {
	Speak(text string)
}

// MembershipWatcher reacts to participant events from the transport. Each
// join is greeted once through the speaker's bypass path; leaves are only
// logged. Greetings are queued and spoken by a dedicated goroutine because
// synthesizing one can take seconds and transport event callbacks must not
// block.
type MembershipWatcher struct {
	agentID string
	tr      transport.Transport
	speaker Speaker
	log     *slog.Logger

	mu        sync.Mutex
	sub       transport.Subscription
	greetings chan string
	done      chan struct{}
}

// NewMembershipWatcher creates a watcher for the given transport. agentID is
// used to suppress the greeting for the agent's own join event.
func NewMembershipWatcher(agentID string, tr transport.Transport, speaker Speaker, log *slog.Logger) *MembershipWatcher {
	if log == nil {
		log = slog.Default()
	}
	return &MembershipWatcher{
		agentID: agentID,
		tr:      tr,
		speaker: speaker,
		log:     log,
	}
}

// Start spawns the greeter goroutine and registers the participant event
// subscription. Calling Start twice without an intervening Stop is an error.
func (w *MembershipWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sub != nil {
		return fmt.Errorf("watcher: already started")
	}

	w.greetings = make(chan string, greetingQueue)
	w.done = make(chan struct{})
	go w.greet(w.greetings, w.done)

	sub, err := w.tr.Subscribe(w.handle)
	if err != nil {
		close(w.greetings)
		<-w.done
		w.greetings, w.done = nil, nil
		return fmt.Errorf("watcher: subscribe: %w", err)
	}
	w.sub = sub
	return nil
}

// Stop releases the subscription and waits for queued greetings to finish.
// Safe to call multiple times and before Start.
func (w *MembershipWatcher) Stop() {
	w.mu.Lock()
	if w.sub != nil {
		w.sub.Cancel()
		w.sub = nil
	}
	lines, done := w.greetings, w.done
	w.greetings, w.done = nil, nil
	w.mu.Unlock()

	if lines != nil {
		close(lines)
		<-done
	}
}

// greet speaks queued welcome lines in arrival order until the queue closes.
func (w *MembershipWatcher) greet(lines <-chan string, done chan<- struct{}) {
	defer close(done)
	for line := range lines {
		w.speaker.Speak(line)
	}
}

// handle processes one participant event. It runs on the transport's event
// goroutine and must not block; greetings are handed to the greeter.
func (w *MembershipWatcher) handle(ev transport.ParticipantEvent) {
	switch ev.Kind {
	case transport.ParticipantJoined:
		w.log.Info("participant joined",
			"participant_id", ev.ParticipantID, "name", ev.Name)
		if ev.ParticipantID == w.agentID {
			return
		}
		line := fmt.Sprintf(welcomeFormat, ev.Name)

		w.mu.Lock()
		defer w.mu.Unlock()
		if w.greetings == nil {
			return
		}
		select {
		case w.greetings <- line:
		default:
			w.log.Warn("greeting queue full, skipping welcome", "name", ev.Name)
		}
	case transport.ParticipantLeft:
		w.log.Info("participant left",
			"participant_id", ev.ParticipantID, "name", ev.Name)
	}
}
