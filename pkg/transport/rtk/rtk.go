// Package rtk implements [transport.Transport] against a RealtimeKit-style
// meeting media gateway.
//
// The gateway speaks a mixed websocket protocol: JSON text messages carry
// control traffic (join handshake, participant membership events) and binary
// messages carry Opus audio. Inbound binary frames are prefixed with the
// sending participant's id; outbound frames are the assistant's own audio
// and carry no prefix.
package rtk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/voxmeet/voxmeet/pkg/audio"
	"github.com/voxmeet/voxmeet/pkg/transport"
)

const (
	// joinTimeout bounds the join handshake round trip.
	joinTimeout = 15 * time.Second

	// inputBuffer is the depth of the decoded audio input channel. At 20 ms
	// per frame this absorbs ~2.5 s of meeting audio before frames drop.
	inputBuffer = 128
)

// Config holds the connection parameters for one meeting.
type Config struct {
	// GatewayURL is the websocket endpoint of the media gateway
	// (e.g., "wss://rtk.example.com/v1/meetings").
	GatewayURL string

	// MeetingID identifies the meeting to join.
	MeetingID string

	// AuthToken is the bearer credential presented during the handshake.
	AuthToken string

	// AgentID is the assistant's participant id within the meeting.
	AgentID string

	// AgentName is the assistant's display name. Defaults to "AI Assistant".
	AgentName string
}

// controlMessage is the JSON envelope for text messages in both directions.
type controlMessage struct {
	Type        string       `json:"type"`
	MeetingID   string       `json:"meeting_id,omitempty"`
	Token       string       `json:"token,omitempty"`
	Participant *participant `json:"participant,omitempty"`
	Message     string       `json:"message,omitempty"`
}

type participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// Compile-time interface assertion.
var _ transport.Transport = (*Transport)(nil)

// Transport implements [transport.Transport] over a gateway websocket.
// It is safe for concurrent use.
type Transport struct {
	cfg     config
	encoder *opusEncoder
	conv    audio.Converter

	mu       sync.Mutex
	conn     *websocket.Conn
	joined   bool
	closed   bool
	subs     map[int]func(transport.ParticipantEvent)
	nextSub  int
	decoders map[string]*opusDecoder

	input chan audio.Frame
	done  chan struct{}
	wg    sync.WaitGroup

	// sendMu serializes outbound encoding; pending carries the partial
	// trailing Opus frame of the previous SendAudio call.
	sendMu  sync.Mutex
	pending []byte
}

// config is the validated form of [Config].
type config struct {
	gatewayURL string
	meetingID  string
	authToken  string
	agentID    string
	agentName  string
}

// New creates a Transport for the given meeting. The gateway is not dialled
// until [Transport.Join] is called.
func New(cfg Config) (*Transport, error) {
	if cfg.GatewayURL == "" {
		return nil, errors.New("rtk: GatewayURL must not be empty")
	}
	if cfg.MeetingID == "" {
		return nil, errors.New("rtk: MeetingID must not be empty")
	}
	if _, err := url.Parse(cfg.GatewayURL); err != nil {
		return nil, fmt.Errorf("rtk: parse gateway URL: %w", err)
	}
	name := cfg.AgentName
	if name == "" {
		name = "AI Assistant"
	}

	enc, err := newOpusEncoder()
	if err != nil {
		return nil, err
	}

	return &Transport{
		cfg: config{
			gatewayURL: cfg.GatewayURL,
			meetingID:  cfg.MeetingID,
			authToken:  cfg.AuthToken,
			agentID:    cfg.AgentID,
			agentName:  name,
		},
		encoder:  enc,
		conv:     audio.Converter{Target: audio.Format{SampleRate: opusSampleRate, Channels: opusChannels}},
		subs:     make(map[int]func(transport.ParticipantEvent)),
		decoders: make(map[string]*opusDecoder),
		input:    make(chan audio.Frame, inputBuffer),
		done:     make(chan struct{}),
	}, nil
}

// Join dials the gateway, performs the join handshake, and starts the read
// loop. It blocks until the gateway acknowledges the join, ctx is cancelled,
// or the handshake times out.
func (t *Transport) Join(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return errors.New("rtk: transport is closed")
	}
	if t.joined {
		t.mu.Unlock()
		return errors.New("rtk: already joined")
	}
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+t.cfg.authToken)

	wsURL := fmt.Sprintf("%s/%s", t.cfg.gatewayURL, url.PathEscape(t.cfg.meetingID))
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		return fmt.Errorf("rtk: dial gateway: %w", err)
	}

	join := controlMessage{
		Type:      "join",
		MeetingID: t.cfg.meetingID,
		Token:     t.cfg.authToken,
		Participant: &participant{
			ID:   t.cfg.agentID,
			Name: t.cfg.agentName,
			Role: "agent",
		},
	}
	payload, _ := json.Marshal(join)
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		conn.Close(websocket.StatusInternalError, "join write failed")
		return fmt.Errorf("rtk: send join: %w", err)
	}

	// Wait for the joined ack before exposing the connection.
	for {
		kind, msg, err := conn.Read(ctx)
		if err != nil {
			conn.Close(websocket.StatusInternalError, "join ack read failed")
			return fmt.Errorf("rtk: await join ack: %w", err)
		}
		if kind != websocket.MessageText {
			continue
		}
		var ack controlMessage
		if err := json.Unmarshal(msg, &ack); err != nil {
			continue
		}
		switch ack.Type {
		case "joined":
			t.mu.Lock()
			t.conn = conn
			t.joined = true
			t.mu.Unlock()

			t.wg.Add(1)
			go t.readLoop()

			slog.Info("joined meeting",
				"meeting_id", t.cfg.meetingID,
				"agent_id", t.cfg.agentID,
			)
			return nil
		case "error":
			conn.Close(websocket.StatusPolicyViolation, "join rejected")
			return fmt.Errorf("rtk: join rejected: %s", ack.Message)
		}
	}
}

// Leave exits the meeting. A transport that never joined leaves as a no-op.
func (t *Transport) Leave(ctx context.Context) error {
	t.mu.Lock()
	conn := t.conn
	joined := t.joined
	t.joined = false
	t.mu.Unlock()

	if !joined || conn == nil {
		return nil
	}

	leave, _ := json.Marshal(controlMessage{Type: "leave", MeetingID: t.cfg.meetingID})
	if err := conn.Write(ctx, websocket.MessageText, leave); err != nil {
		// The connection may already be gone; Close handles the rest.
		slog.Debug("rtk: leave write failed", "meeting_id", t.cfg.meetingID, "err", err)
	}
	return t.Close()
}

// AudioInput returns the decoded participant audio channel.
func (t *Transport) AudioInput() <-chan audio.Frame {
	return t.input
}

// SendAudio converts frame to the gateway's native format, encodes it to
// Opus in 20 ms slices, and writes it to the gateway. A trailing partial
// slice is carried into the next call instead of being padded, so synthesis
// chunk boundaries do not inject silence gaps. Frames are dropped with an
// error when the transport has not joined or is closed.
func (t *Transport) SendAudio(frame audio.Frame) error {
	t.mu.Lock()
	conn := t.conn
	joined := t.joined
	t.mu.Unlock()

	if !joined || conn == nil {
		return errors.New("rtk: not joined")
	}

	native := t.conv.Convert(frame)
	if len(native.PCM) == 0 {
		return nil
	}

	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	frames, rest := sliceFrames(t.pending, native.PCM, opusFrameSize*opusChannels*2)
	t.pending = rest
	for _, pcm := range frames {
		packet, err := t.encoder.encode(pcm)
		if err != nil {
			return err
		}
		if err := t.writeBinary(conn, packet); err != nil {
			return err
		}
	}
	return nil
}

// sliceFrames splits carry+pcm into size-byte encoder frames, returning the
// complete frames and the partial remainder to carry into the next call.
func sliceFrames(carry, pcm []byte, size int) ([][]byte, []byte) {
	buf := pcm
	if len(carry) > 0 {
		buf = make([]byte, 0, len(carry)+len(pcm))
		buf = append(buf, carry...)
		buf = append(buf, pcm...)
	}

	var frames [][]byte
	off := 0
	for ; off+size <= len(buf); off += size {
		frames = append(frames, buf[off:off+size])
	}
	var rest []byte
	if off < len(buf) {
		rest = append([]byte(nil), buf[off:]...)
	}
	return frames, rest
}

func (t *Transport) writeBinary(conn *websocket.Conn, packet []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	// Outbound frames carry a zero-length id prefix: the gateway attributes
	// them to the authenticated participant.
	buf := make([]byte, 1+len(packet))
	copy(buf[1:], packet)
	if err := conn.Write(ctx, websocket.MessageBinary, buf); err != nil {
		return fmt.Errorf("rtk: send audio: %w", err)
	}
	return nil
}

// Subscribe registers cb for membership events.
func (t *Transport) Subscribe(cb func(transport.ParticipantEvent)) (transport.Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, errors.New("rtk: transport is closed")
	}
	id := t.nextSub
	t.nextSub++
	t.subs[id] = cb
	return &subscription{t: t, id: id}, nil
}

// subscription is the cancellation handle returned by Subscribe.
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

// Close tears down the websocket and closes the input channel.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.joined = false
	conn := t.conn
	t.conn = nil
	t.subs = make(map[int]func(transport.ParticipantEvent))
	t.mu.Unlock()

	close(t.done)
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "transport closed")
	}
	t.wg.Wait()
	close(t.input)
	return nil
}

// readLoop receives gateway messages until the connection drops or the
// transport closes: JSON control messages become participant events, binary
// messages are Opus-decoded into the input channel.
func (t *Transport) readLoop() {
	defer t.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-t.done
		cancel()
	}()

	start := time.Now()
	for {
		t.mu.Lock()
		conn := t.conn
		t.mu.Unlock()
		if conn == nil {
			return
		}

		kind, msg, err := conn.Read(ctx)
		if err != nil {
			select {
			case <-t.done:
			default:
				slog.Warn("rtk: gateway read error", "meeting_id", t.cfg.meetingID, "err", err)
			}
			return
		}

		switch kind {
		case websocket.MessageText:
			t.handleControl(msg)
		case websocket.MessageBinary:
			t.handleAudio(msg, time.Since(start))
		}
	}
}

// handleControl parses a JSON control message and fans membership events out
// to subscribers.
func (t *Transport) handleControl(msg []byte) {
	var ctl controlMessage
	if err := json.Unmarshal(msg, &ctl); err != nil {
		slog.Debug("rtk: malformed control message", "err", err)
		return
	}

	var kind transport.EventKind
	switch ctl.Type {
	case "participant_joined":
		kind = transport.ParticipantJoined
	case "participant_left":
		kind = transport.ParticipantLeft
	default:
		return
	}
	if ctl.Participant == nil {
		return
	}

	ev := transport.ParticipantEvent{
		Kind:          kind,
		ParticipantID: ctl.Participant.ID,
		Name:          ctl.Participant.Name,
	}

	t.mu.Lock()
	cbs := make([]func(transport.ParticipantEvent), 0, len(t.subs))
	for _, cb := range t.subs {
		cbs = append(cbs, cb)
	}
	if ev.Kind == transport.ParticipantLeft {
		delete(t.decoders, ev.ParticipantID)
	}
	t.mu.Unlock()

	for _, cb := range cbs {
		cb(ev)
	}
}

// handleAudio decodes a participant-prefixed Opus packet into the input
// channel. Full channels drop the frame rather than block the read loop.
func (t *Transport) handleAudio(msg []byte, ts time.Duration) {
	if len(msg) < 2 {
		return
	}
	idLen := int(msg[0])
	if len(msg) < 1+idLen+1 {
		return
	}
	participantID := string(msg[1 : 1+idLen])
	packet := msg[1+idLen:]

	t.mu.Lock()
	dec, ok := t.decoders[participantID]
	if !ok {
		var err error
		dec, err = newOpusDecoder()
		if err != nil {
			t.mu.Unlock()
			slog.Error("rtk: decoder create failed", "participant", participantID, "err", err)
			return
		}
		t.decoders[participantID] = dec
	}
	t.mu.Unlock()

	pcm, err := dec.decode(packet)
	if err != nil {
		slog.Debug("rtk: opus decode failed", "participant", participantID, "err", err)
		return
	}

	frame := audio.Frame{
		PCM:           pcm,
		SampleRate:    opusSampleRate,
		Channels:      opusChannels,
		ParticipantID: participantID,
		Timestamp:     ts,
	}
	select {
	case t.input <- frame:
	default:
		slog.Warn("rtk: input channel full, dropping frame", "meeting_id", t.cfg.meetingID)
	}
}
