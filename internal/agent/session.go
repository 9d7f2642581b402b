// Package agent implements the per-meeting assistant: the pipeline stages
// (transport duplex, recognizer, responder, synthesizer), the membership
// watcher that greets participants, and the [Session] state machine that
// owns their shared lifecycle.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/voxmeet/voxmeet/internal/observe"
	"github.com/voxmeet/voxmeet/internal/pipeline"
	"github.com/voxmeet/voxmeet/internal/store"
	"github.com/voxmeet/voxmeet/pkg/provider/llm"
	"github.com/voxmeet/voxmeet/pkg/provider/stt"
	"github.com/voxmeet/voxmeet/pkg/provider/tts"
	"github.com/voxmeet/voxmeet/pkg/transport"
)

// ErrAlreadyInitialized is returned by [Session.Init] when the session is
// already active.
var ErrAlreadyInitialized = errors.New("agent: session already initialized")

// State is the lifecycle state of a [Session].
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateActive
	StateDeinitializing
	StateTerminated
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateDeinitializing:
		return "deinitializing"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// TransportFactory builds the media transport for one meeting. The session
// calls it during Init with the meeting id and the caller's bearer token.
type TransportFactory func(meetingID, authToken, agentID, agentName string) (transport.Transport, error)

// Deps bundles the provider dependencies shared by all sessions.
type Deps struct {
	// STT transcribes meeting audio.
	STT stt.Provider

	// TTS speaks the replies.
	TTS tts.Provider

	// Voice selects the TTS voice.
	Voice tts.Voice

	// LLM generates the replies. Typically wrapped in a resilience fallback.
	LLM llm.Provider

	// NewTransport builds the media transport for a meeting.
	NewTransport TransportFactory

	// Transcripts persists utterances and replies. Optional.
	Transcripts *store.TranscriptLog

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// Logger defaults to [slog.Default].
	Logger *slog.Logger
}

// InitParams carries the per-meeting identity for [Session.Init].
type InitParams struct {
	AgentID   string
	AgentName string
	MeetingID string
	AuthToken string
}

// Session is the lifecycle container for one meeting's assistant. It builds
// the transport and the processing pipeline on Init and releases everything
// on Deinit.
//
// A session moves Uninitialized → Initializing → Active → Deinitializing →
// Terminated; a terminated session is not reusable. One mutex serializes
// Init and Deinit, so concurrent calls observe a consistent state.
type Session struct {
	deps    Deps
	metrics *observe.Metrics
	log     *slog.Logger

	mu        sync.Mutex
	state     State
	params    InitParams
	transport transport.Transport
	orch      *pipeline.Orchestrator
	watcher   *MembershipWatcher
}

// NewSession creates a [Session] in the uninitialized state.
func NewSession(deps Deps) *Session {
	s := &Session{
		deps:    deps,
		metrics: deps.Metrics,
		log:     deps.Logger,
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// MeetingID returns the meeting this session was initialized for. Empty
// before Init.
func (s *Session) MeetingID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params.MeetingID
}

// Init builds and starts the assistant for the meeting described by params:
// transport, pipeline [transport source, recognizer, responder, synthesizer,
// transport sink], membership watcher, and finally the transport join
// handshake. A failure at any step unwinds the partially started resources
// and leaves the session Terminated.
//
// Init on an Active or Initializing session returns [ErrAlreadyInitialized];
// Init on a Terminated session returns an error.
func (s *Session) Init(ctx context.Context, params InitParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateUninitialized:
		// proceed
	case StateInitializing, StateActive:
		return ErrAlreadyInitialized
	default:
		return fmt.Errorf("agent: session is %s, cannot init", s.state)
	}

	s.state = StateInitializing
	s.params = params
	log := s.log.With("meeting_id", params.MeetingID, "agent_id", params.AgentID)

	tr, err := s.deps.NewTransport(params.MeetingID, params.AuthToken, params.AgentID, params.AgentName)
	if err != nil {
		s.state = StateTerminated
		return fmt.Errorf("agent: build transport: %w", err)
	}

	responder := NewResponder(ResponderConfig{
		MeetingID: params.MeetingID,
		Provider:  s.deps.LLM,
		Recorder:  s.deps.Transcripts,
		Metrics:   s.metrics,
		Logger:    log,
	})

	stages := []pipeline.Stage{
		NewTransportSource(tr, log),
		NewRecognizer(RecognizerConfig{
			MeetingID: params.MeetingID,
			Provider:  s.deps.STT,
			Metrics:   s.metrics,
			Logger:    log,
		}),
		responder,
		NewSynthesizer(SynthesizerConfig{
			MeetingID: params.MeetingID,
			Provider:  s.deps.TTS,
			Voice:     s.deps.Voice,
			Metrics:   s.metrics,
			Logger:    log,
		}),
		NewTransportSink(tr, log),
	}

	orch := pipeline.New(stages,
		pipeline.WithMetrics(s.metrics),
		pipeline.WithLogger(log),
	)
	if err := orch.Start(ctx); err != nil {
		_ = tr.Close()
		s.state = StateTerminated
		return fmt.Errorf("agent: start pipeline: %w", err)
	}

	watcher := NewMembershipWatcher(params.AgentID, tr, responder, log)
	if err := watcher.Start(); err != nil {
		_ = orch.Stop(ctx)
		_ = tr.Close()
		s.state = StateTerminated
		return fmt.Errorf("agent: start watcher: %w", err)
	}

	if err := tr.Join(ctx); err != nil {
		watcher.Stop()
		_ = orch.Stop(ctx)
		_ = tr.Close()
		s.state = StateTerminated
		return fmt.Errorf("agent: join meeting: %w", err)
	}

	s.transport = tr
	s.orch = orch
	s.watcher = watcher
	s.state = StateActive
	s.metrics.ActiveAgents.Add(ctx, 1)

	log.Info("agent session initialized")
	return nil
}

// Deinit tears the session down: pipeline stop, watcher release, transport
// leave and close, in that order. Teardown errors are collected and joined;
// no step aborts the remaining ones. Deinit on an Uninitialized or already
// Terminated session is a no-op.
func (s *Session) Deinit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateActive:
		// proceed
	case StateUninitialized, StateTerminated:
		return nil
	default:
		return fmt.Errorf("agent: session is %s, cannot deinit", s.state)
	}

	s.state = StateDeinitializing
	log := s.log.With("meeting_id", s.params.MeetingID, "agent_id", s.params.AgentID)

	var errs []error
	if err := s.orch.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("agent: stop pipeline: %w", err))
	}
	s.watcher.Stop()
	if err := s.transport.Leave(ctx); err != nil {
		errs = append(errs, fmt.Errorf("agent: leave meeting: %w", err))
	}
	if err := s.transport.Close(); err != nil {
		errs = append(errs, fmt.Errorf("agent: close transport: %w", err))
	}

	s.transport = nil
	s.orch = nil
	s.watcher = nil
	s.state = StateTerminated
	s.metrics.ActiveAgents.Add(ctx, -1)

	err := errors.Join(errs...)
	if err != nil {
		log.Warn("agent session deinitialized with errors", "error", err)
	} else {
		log.Info("agent session deinitialized")
	}
	return err
}

// HandleInternal serves the session's internal inspection endpoint. It
// reports the agent identity and lifecycle state as JSON.
func (s *Session) HandleInternal(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	body := struct {
		AgentID   string `json:"agentId"`
		MeetingID string `json:"meetingId"`
		State     string `json:"state"`
	}{
		AgentID:   s.params.AgentID,
		MeetingID: s.params.MeetingID,
		State:     s.state.String(),
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
