package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relaydial/relaydial/internal/model"
)

const defaultDialTimeout = 15 * time.Second

// RealtimeTransport speaks the platform's live-session protocol: JSON frames
// over a websocket, full cumulative transcript on every update frame.
type RealtimeTransport struct {
	endpoint string
	dialer   *websocket.Dialer

	conn   *websocket.Conn
	events chan Event
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
}

// NewRealtimeTransport creates a transport that dials the given live endpoint.
func NewRealtimeTransport(endpoint string) *RealtimeTransport {
	return &RealtimeTransport{
		endpoint: endpoint,
		dialer:   websocket.DefaultDialer,
		events:   make(chan Event, 64),
		done:     make(chan struct{}),
	}
}

// wire frames, platform side
type serverFrame struct {
	Type       string           `json:"type"`
	Message    string           `json:"message,omitempty"`
	Transcript []wireTranscript `json:"transcript,omitempty"`
}

type wireTranscript struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Offset  string `json:"offset,omitempty"`
}

type clientStartFrame struct {
	Type        string `json:"type"`
	CallID      string `json:"call_id"`
	AccessToken string `json:"access_token"`
	SampleRate  int    `json:"sample_rate"`
}

type clientControlFrame struct {
	Type  string `json:"type"`
	Muted bool   `json:"muted,omitempty"`
}

// StartCall dials the endpoint and sends the start frame. Events begin
// flowing on Events() once the read loop is up.
func (t *RealtimeTransport) StartCall(ctx context.Context, cfg CallConfig) error {
	wsURL, err := websocketURL(t.endpoint)
	if err != nil {
		return err
	}

	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, defaultDialTimeout)
		defer cancel()
	}

	headers := make(http.Header)
	headers.Set("Authorization", "Bearer "+cfg.AccessToken)

	conn, resp, err := t.dialer.DialContext(dialCtx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial live session (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("dial live session: %w", err)
	}

	start := clientStartFrame{
		Type:        "start",
		CallID:      cfg.CallID,
		AccessToken: cfg.AccessToken,
		SampleRate:  cfg.SampleRate,
	}
	// conn is published only after the start frame lands; Close must not
	// wait on a read loop that never started.
	if err := conn.WriteJSON(start); err != nil {
		_ = conn.Close()
		return fmt.Errorf("send start frame: %w", err)
	}
	t.conn = conn

	go t.readLoop()
	return nil
}

// StopCall asks the remote side to end the session.
func (t *RealtimeTransport) StopCall() error {
	return t.sendJSON(clientControlFrame{Type: "stop"})
}

// SetMuted toggles the outbound audio mute flag on the remote side.
func (t *RealtimeTransport) SetMuted(muted bool) error {
	return t.sendJSON(clientControlFrame{Type: "mute", Muted: muted})
}

// Events yields session events. The channel closes when the connection drops.
func (t *RealtimeTransport) Events() <-chan Event {
	return t.events
}

// Close shuts the connection down. Safe to call more than once.
func (t *RealtimeTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		if t.conn != nil {
			t.writeMu.Lock()
			_ = t.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(2*time.Second))
			t.writeMu.Unlock()
			_ = t.conn.Close()
		} else {
			close(t.done)
			close(t.events)
		}
	})
	<-t.done
	return nil
}

func (t *RealtimeTransport) sendJSON(v any) error {
	if t.closed.Load() {
		return fmt.Errorf("session is closed")
	}
	if t.conn == nil {
		return fmt.Errorf("session not started")
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteJSON(v)
}

func (t *RealtimeTransport) readLoop() {
	defer close(t.done)
	defer close(t.events)

	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || t.closed.Load() {
				t.emit(Event{Type: EventEnded})
				return
			}
			t.emit(Event{Type: EventError, Err: err})
			return
		}

		var frame serverFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			// Garbage frames are dropped rather than tearing the session down.
			continue
		}
		switch strings.TrimSpace(frame.Type) {
		case "call_started":
			t.emit(Event{Type: EventStarted})
		case "call_ended":
			t.emit(Event{Type: EventEnded})
			return
		case "update":
			t.emit(Event{Type: EventUpdate, Transcript: transcriptFromFrames(frame.Transcript)})
		case "error":
			msg := frame.Message
			if msg == "" {
				msg = "session error"
			}
			t.emit(Event{Type: EventError, Err: fmt.Errorf("%s", msg)})
		}
	}
}

func (t *RealtimeTransport) emit(ev Event) {
	select {
	case t.events <- ev:
	default:
		// Do not block the read loop on a stalled consumer.
	}
}

func transcriptFromFrames(frames []wireTranscript) []model.TranscriptEntry {
	out := make([]model.TranscriptEntry, 0, len(frames))
	for _, f := range frames {
		speaker := "Driver"
		if f.Role == "agent" {
			speaker = "Agent"
		}
		out = append(out, model.TranscriptEntry{
			Speaker:   speaker,
			Text:      f.Content,
			Timestamp: f.Offset,
		})
	}
	return out
}

func websocketURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse live endpoint: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("live endpoint must use http(s) or ws(s), got %q", u.Scheme)
	}
	return u.String(), nil
}
