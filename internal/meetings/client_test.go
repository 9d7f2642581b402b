package meetings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHasAgent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		participants []Participant
		want         bool
	}{
		{"empty", nil, false},
		{"humans only", []Participant{{Name: "Ada", Role: "member"}}, false},
		{"agent in name", []Participant{{Name: "Meeting Agent"}}, true},
		{"agent name case insensitive", []Participant{{Name: "AGENT-42"}}, true},
		{"agent role", []Participant{{Name: "Helper", Role: "agent"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := HasAgent(tt.participants); got != tt.want {
				t.Errorf("HasAgent(%v) = %v, want %v", tt.participants, got, tt.want)
			}
		})
	}
}

func TestListParticipants(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/meetings/meet-1/participants" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("Authorization = %q, want Bearer tok", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"participants":[{"id":"p1","name":"Ada","role":"member"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", nil)
	got, err := c.ListParticipants(context.Background(), "meet-1")
	if err != nil {
		t.Fatalf("ListParticipants: %v", err)
	}
	if len(got) != 1 || got[0].ID != "p1" || got[0].Name != "Ada" {
		t.Errorf("participants = %+v", got)
	}
}

func TestListParticipantsDataEnvelope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"p1","name":"Ada"},{"id":"p2","name":"Grace"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", nil)
	got, err := c.ListParticipants(context.Background(), "meet-1")
	if err != nil {
		t.Fatalf("ListParticipants: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Ada" || got[1].Name != "Grace" {
		t.Errorf("participants = %+v", got)
	}
}

func TestAgentPresent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"participants":[{"id":"a1","name":"AI Agent","role":"agent"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", nil)
	if !c.AgentPresent(context.Background(), "meet-1") {
		t.Error("AgentPresent = false, want true")
	}
}

func TestAgentPresentDisabledClient(t *testing.T) {
	t.Parallel()

	if New("", "", nil).AgentPresent(context.Background(), "meet-1") {
		t.Error("disabled client reported an agent present")
	}
	var nilClient *Client
	if nilClient.AgentPresent(context.Background(), "meet-1") {
		t.Error("nil client reported an agent present")
	}
}

func TestPing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	c := New(srv.URL, "tok", nil)
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping with reachable directory: %v", err)
	}

	srv.Close()
	if err := c.Ping(context.Background()); err == nil {
		t.Error("Ping with unreachable directory returned nil")
	}

	if err := New("", "", nil).Ping(context.Background()); err != nil {
		t.Errorf("Ping on disabled client: %v", err)
	}
}

func TestAgentPresentLookupFailureProceeds(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", nil)
	if c.AgentPresent(context.Background(), "meet-1") {
		t.Error("failed lookup reported an agent present, want false")
	}
}
