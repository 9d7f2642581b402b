package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/voxmeet/voxmeet/internal/agent"
	"github.com/voxmeet/voxmeet/internal/meetings"
)

// agentName is the display name the assistant joins meetings under.
const agentName = "AI Assistant"

// Router dispatches meeting lifecycle requests to the session registry.
type Router struct {
	registry  *Registry
	directory *meetings.Client
	log       *slog.Logger

	// webhookLifecycle enables deinit-on-last-human-leave driven by webhook
	// events. Off by default; explicit leave calls remain authoritative.
	webhookLifecycle bool

	// staticDir is the root of the web client assets. Empty disables static
	// serving.
	staticDir string
}

// RouterConfig holds the dependencies of a [Router].
type RouterConfig struct {
	Registry         *Registry
	Directory        *meetings.Client
	WebhookLifecycle bool
	StaticDir        string
	Logger           *slog.Logger
}

// NewRouter creates a [Router].
func NewRouter(cfg RouterConfig) *Router {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		registry:         cfg.Registry,
		directory:        cfg.Directory,
		webhookLifecycle: cfg.WebhookLifecycle,
		staticDir:        cfg.StaticDir,
		log:              log,
	}
}

// ServeHTTP implements [http.Handler]. API and internal paths go through the
// session dispatch; everything else is served as static content.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/agentsInternal") {
		rt.serveAPI(w, r)
		return
	}
	rt.serveStatic(w, r)
}

func (rt *Router) serveAPI(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/webhook" {
		rt.handleWebhook(w, r)
		return
	}

	meetingID := r.URL.Query().Get("meetingId")
	if meetingID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "meetingId is required"})
		return
	}

	if strings.HasPrefix(r.URL.Path, "/agentsInternal") {
		rt.registry.Resolve(meetingID).HandleInternal(w, r)
		return
	}

	switch r.URL.Path {
	case "/api/meeting/join":
		rt.handleJoin(w, r, meetingID)
	case "/api/meeting/leave":
		rt.handleLeave(w, r, meetingID)
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Not found"})
	}
}

// handleJoin starts the assistant for a meeting. Repeated joins are
// idempotent: an already-initialized session and a directory-reported
// existing assistant both count as success.
func (rt *Router) handleJoin(w http.ResponseWriter, r *http.Request, meetingID string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Authorization header required"})
		return
	}
	authToken := bearerToken(authHeader)

	if rt.directory.AgentPresent(r.Context(), meetingID) {
		rt.log.Info("assistant already present, skipping init", "meeting_id", meetingID)
		writeJoinSuccess(w, meetingID)
		return
	}

	session := rt.registry.Resolve(meetingID)
	// The session outlives this request; detach its lifetime from it.
	err := session.Init(context.WithoutCancel(r.Context()), agent.InitParams{
		AgentID:   "agent-" + meetingID,
		AgentName: agentName,
		MeetingID: meetingID,
		AuthToken: authToken,
	})
	if err != nil && !errors.Is(err, agent.ErrAlreadyInitialized) {
		rt.log.Error("meeting join failed", "meeting_id", meetingID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Failed to join meeting"})
		return
	}

	writeJoinSuccess(w, meetingID)
}

// handleLeave tears the session down. Leaving a meeting that never had a
// session still succeeds.
func (rt *Router) handleLeave(w http.ResponseWriter, _ *http.Request, meetingID string) {
	session, ok := rt.registry.Peek(meetingID)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}

	if err := session.Deinit(context.WithoutCancel(context.Background())); err != nil {
		rt.log.Error("meeting leave failed", "meeting_id", meetingID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Failed to leave meeting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// webhookEvent is the notification body posted by the meeting platform.
type webhookEvent struct {
	Type      string `json:"type"`
	MeetingID string `json:"meetingId"`
	Participant struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"participant"`
}

func (rt *Router) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var ev webhookEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		rt.log.Error("webhook decode failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	rt.log.Info("webhook event received",
		"type", ev.Type, "meeting_id", ev.MeetingID,
		"participant_id", ev.Participant.ID, "participant_name", ev.Participant.Name)

	switch ev.Type {
	case "meeting.participant_joined":
		// Bookkeeping only; the explicit join endpoint drives lifecycle.
	case "meeting.participant_left":
		if rt.webhookLifecycle {
			rt.maybeReleaseMeeting(r.Context(), ev.MeetingID)
		}
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// maybeReleaseMeeting deinitializes the meeting's session when the directory
// reports no human participants remaining. Without a directory there is no
// authoritative count, so nothing happens.
func (rt *Router) maybeReleaseMeeting(ctx context.Context, meetingID string) {
	if meetingID == "" || !rt.directory.Enabled() {
		return
	}
	session, ok := rt.registry.Peek(meetingID)
	if !ok || session.State() != agent.StateActive {
		return
	}

	participants, err := rt.directory.ListParticipants(ctx, meetingID)
	if err != nil {
		rt.log.Warn("participant count lookup failed, keeping session",
			"meeting_id", meetingID, "error", err)
		return
	}
	for _, p := range participants {
		if !strings.Contains(strings.ToLower(p.Name), "agent") && p.Role != "agent" {
			return
		}
	}

	rt.log.Info("last participant left, releasing session", "meeting_id", meetingID)
	if err := session.Deinit(context.WithoutCancel(ctx)); err != nil {
		rt.log.Error("webhook-driven deinit failed", "meeting_id", meetingID, "error", err)
	}
}

// serveStatic serves the web client with a single-page-app fallback: unknown
// extension-less paths get the root document so client-side routing works.
func (rt *Router) serveStatic(w http.ResponseWriter, r *http.Request) {
	if rt.staticDir == "" {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(rt.staticDir, filepath.Clean("/"+r.URL.Path))
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		http.ServeFile(w, r, path)
		return
	}
	if r.URL.Path != "/" && strings.Contains(r.URL.Path, ".") {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(rt.staticDir, "index.html"))
}

// bearerToken extracts the credential from an Authorization header value.
func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return parts[0]
}

func writeJoinSuccess(w http.ResponseWriter, meetingID string) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"meetingId": meetingID,
		"message":   "Ready to join meeting",
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
