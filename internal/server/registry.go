// Package server exposes the meeting lifecycle HTTP API: idempotent join and
// leave endpoints, the webhook receiver, the internal session endpoint, and
// the static asset fallback for the web client.
package server

import (
	"sync"

	"github.com/voxmeet/voxmeet/internal/agent"
)

// Registry maps meeting keys to their session instance. Resolution is the
// serialization point for the one-session-per-meeting invariant: concurrent
// requests for the same key always reach the same instance, and the
// session's own mutex arbitrates lifecycle from there.
type Registry struct {
	newSession func() *agent.Session

	mu       sync.Mutex
	sessions map[string]*agent.Session
}

// NewRegistry creates a registry that builds sessions with newSession.
func NewRegistry(newSession func() *agent.Session) *Registry {
	return &Registry{
		newSession: newSession,
		sessions:   make(map[string]*agent.Session),
	}
}

// Resolve returns the session for meetingID, creating one on first use. A
// terminated session is replaced with a fresh instance so a meeting can be
// rejoined after a leave.
func (r *Registry) Resolve(meetingID string) *agent.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[meetingID]
	if ok && s.State() != agent.StateTerminated {
		return s
	}
	s = r.newSession()
	r.sessions[meetingID] = s
	return s
}

// Peek returns the session for meetingID without creating one.
func (r *Registry) Peek(meetingID string) (*agent.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[meetingID]
	return s, ok
}

// Len reports the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
