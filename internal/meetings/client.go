// Package meetings is a thin client for the meetings directory API. The
// session router uses it to check whether an assistant is already present in
// a meeting before spawning another one.
package meetings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultTimeout bounds a single directory lookup.
const defaultTimeout = 10 * time.Second

// Participant is one member of a meeting as reported by the directory.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Client talks to the meetings directory API. The zero value (or a client
// built from empty credentials) is disabled: lookups report no conflict so
// callers always proceed.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *slog.Logger
}

// New creates a directory client. Either argument empty yields a disabled
// client.
func New(baseURL, token string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     log,
	}
}

// Enabled reports whether the client has a directory to query.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != "" && c.token != ""
}

// ListParticipants fetches the current members of meetingID.
func (c *Client) ListParticipants(ctx context.Context, meetingID string) ([]Participant, error) {
	u := fmt.Sprintf("%s/meetings/%s/participants", c.baseURL, url.PathEscape(meetingID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("meetings: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("meetings: list participants: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("meetings: list participants: unexpected status %d", resp.StatusCode)
	}

	// RealtimeKit deployments return the roster under "data"; self-hosted
	// directories use "participants". Accept both.
	var body struct {
		Participants []Participant `json:"participants"`
		Data         []Participant `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("meetings: decode participants: %w", err)
	}
	if body.Participants == nil {
		body.Participants = body.Data
	}
	return body.Participants, nil
}

// Ping probes directory reachability for readiness checks. Any HTTP
// response counts as reachable; only transport-level failures are errors.
func (c *Client) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/meetings", nil)
	if err != nil {
		return fmt.Errorf("meetings: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("meetings: ping: %w", err)
	}
	resp.Body.Close()
	return nil
}

// HasAgent reports whether any participant looks like an assistant: a name
// containing "agent" or an explicit agent role.
func HasAgent(participants []Participant) bool {
	for _, p := range participants {
		if strings.Contains(strings.ToLower(p.Name), "agent") || p.Role == "agent" {
			return true
		}
	}
	return false
}

// AgentPresent checks the directory for an existing assistant in meetingID.
// A disabled client or a failed lookup reports false: presence checking is
// advisory and must never block a join.
func (c *Client) AgentPresent(ctx context.Context, meetingID string) bool {
	if !c.Enabled() {
		return false
	}
	participants, err := c.ListParticipants(ctx, meetingID)
	if err != nil {
		c.log.Warn("participant lookup failed, proceeding with join",
			"meeting_id", meetingID, "error", err)
		return false
	}
	return HasAgent(participants)
}
