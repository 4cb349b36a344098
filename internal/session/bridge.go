// Package session owns the lifecycle of a single live call session and
// mirrors its events into the call store. The bridge is a state machine
// driven by transport events on one side and user actions on the other.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/relaydial/relaydial/internal/model"
	"github.com/relaydial/relaydial/internal/store"
)

// State is the bridge's position in the session lifecycle.
type State string

const (
	StateIdle               State = "idle"
	StateAwaitingPermission State = "awaiting-permission"
	StatePermissionDenied   State = "permission-denied"
	StateConnecting         State = "connecting"
	StateActive             State = "active"
	StateEnded              State = "ended"
	StateFailed             State = "failed"
)

// ErrPermissionDenied reports a refused microphone permission prompt.
// Recoverable: a fresh Start re-enters the permission flow.
var ErrPermissionDenied = errors.New("microphone permission denied")

// ErrNoActiveSession reports an action that needs a live session when none exists.
var ErrNoActiveSession = errors.New("no active session")

// EventType tags a transport event.
type EventType string

const (
	EventStarted EventType = "call_started"
	EventEnded   EventType = "call_ended"
	EventUpdate  EventType = "update"
	EventError   EventType = "error"
)

// Event is one occurrence on the live session.
type Event struct {
	Type       EventType
	Transcript []model.TranscriptEntry // update: full cumulative transcript
	Err        error                   // error
}

// CallConfig carries what the transport needs to join a session.
type CallConfig struct {
	CallID      string
	AccessToken string
	SampleRate  int
}

// Transport is the real-time session connection. The production
// implementation speaks JSON frames over a websocket; tests inject a fake.
type Transport interface {
	StartCall(ctx context.Context, cfg CallConfig) error
	StopCall() error
	SetMuted(muted bool) error
	Events() <-chan Event
	Close() error
}

// TransportFactory builds a fresh transport per session attempt.
type TransportFactory func() Transport

// PermissionFunc requests microphone access. It returns nil when granted.
type PermissionFunc func(ctx context.Context) error

// Result is handed to the completion callback when a session ends.
type Result struct {
	CallID     string
	Duration   string
	Transcript []model.TranscriptEntry
}

// CallSink receives reconciliation events from the bridge. *store.CallStore
// satisfies it.
type CallSink interface {
	ApplyEvent(store.CallEvent)
	MarkFailed(callID, reason string)
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// WithOnEnded registers a completion callback invoked once per session end.
func WithOnEnded(fn func(Result)) Option {
	return func(b *Bridge) { b.onEnded = fn }
}

// WithClock overrides the session start timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Bridge) { b.now = now }
}

// Bridge drives the session state machine. One live session at a time; a new
// Start while one is in flight for the same call is a no-op, and ending a
// session (locally or remotely) is idempotent.
type Bridge struct {
	permission PermissionFunc
	factory    TransportFactory
	sink       CallSink
	logger     *slog.Logger
	now        func() time.Time
	onEnded    func(Result)

	mu         sync.Mutex
	state      State
	callID     string
	transport  Transport
	transcript []model.TranscriptEntry
	muted      bool
	seconds    int
	errMsg     string
	ended      bool
	startedAt  time.Time
	timerStop  chan struct{}
}

// NewBridge creates a session bridge.
func NewBridge(permission PermissionFunc, factory TransportFactory, sink CallSink, opts ...Option) *Bridge {
	b := &Bridge{
		permission: permission,
		factory:    factory,
		sink:       sink,
		logger:     slog.Default(),
		now:        time.Now,
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start begins a session attempt for the given call. Calling it again with
// the in-flight call ID while permission is pending, the session is
// connecting, or the session is active does nothing. Permission denial and
// transport failures are recoverable; the next Start runs a fresh attempt.
func (b *Bridge) Start(ctx context.Context, callID, accessToken string) error {
	b.mu.Lock()
	switch b.state {
	case StateAwaitingPermission, StateConnecting, StateActive:
		if b.callID == callID {
			b.mu.Unlock()
			return nil
		}
		b.mu.Unlock()
		return fmt.Errorf("session for call %s still in flight", b.callID)
	}
	b.state = StateAwaitingPermission
	b.callID = callID
	b.transcript = nil
	b.muted = false
	b.seconds = 0
	b.errMsg = ""
	b.ended = false
	b.mu.Unlock()

	if err := b.permission(ctx); err != nil {
		b.mu.Lock()
		b.state = StatePermissionDenied
		b.errMsg = ErrPermissionDenied.Error()
		b.mu.Unlock()
		b.logger.Warn("microphone permission denied", slog.String("call_id", callID))
		return ErrPermissionDenied
	}

	transport := b.factory()

	b.mu.Lock()
	b.state = StateConnecting
	b.transport = transport
	b.mu.Unlock()

	go b.consume(callID, transport.Events())

	cfg := CallConfig{CallID: callID, AccessToken: accessToken, SampleRate: 24000}
	if err := transport.StartCall(ctx, cfg); err != nil {
		b.fail(callID, fmt.Errorf("start session: %w", err))
		return err
	}
	return nil
}

// End terminates the active session locally. Safe to call when a remote end
// already landed; the teardown runs at most once.
func (b *Bridge) End() error {
	b.mu.Lock()
	transport := b.transport
	callID := b.callID
	b.mu.Unlock()
	if transport == nil {
		return ErrNoActiveSession
	}
	if err := transport.StopCall(); err != nil {
		b.logger.Warn("stop call failed", slog.String("call_id", callID), slog.String("error", err.Error()))
	}
	b.finish(callID)
	return nil
}

// ToggleMute flips the local mute flag after instructing the transport. A
// transport failure is reported without changing local state.
func (b *Bridge) ToggleMute() error {
	b.mu.Lock()
	transport := b.transport
	target := !b.muted
	b.mu.Unlock()
	if transport == nil {
		return ErrNoActiveSession
	}
	if err := transport.SetMuted(target); err != nil {
		b.logger.Warn("mute toggle failed", slog.String("error", err.Error()))
		return fmt.Errorf("toggle mute: %w", err)
	}
	b.mu.Lock()
	b.muted = target
	b.mu.Unlock()
	return nil
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// CallID returns the call the bridge is (or was last) attached to.
func (b *Bridge) CallID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.callID
}

// Muted reports the local mute flag.
func (b *Bridge) Muted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.muted
}

// Seconds returns the elapsed session duration in whole seconds.
func (b *Bridge) Seconds() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seconds
}

// Error returns the last session error message, or "".
func (b *Bridge) Error() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errMsg
}

// Transcript returns a copy of the current transcript.
func (b *Bridge) Transcript() []model.TranscriptEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.TranscriptEntry, len(b.transcript))
	copy(out, b.transcript)
	return out
}

func (b *Bridge) consume(callID string, events <-chan Event) {
	for ev := range events {
		switch ev.Type {
		case EventStarted:
			b.handleStarted(callID)
		case EventUpdate:
			b.handleUpdate(callID, ev.Transcript)
		case EventEnded:
			b.finish(callID)
		case EventError:
			b.fail(callID, ev.Err)
		}
	}
}

func (b *Bridge) handleStarted(callID string) {
	b.mu.Lock()
	if b.callID != callID || b.ended {
		b.mu.Unlock()
		return
	}
	b.state = StateActive
	b.startedAt = b.now()
	// The start event carries no transcript; seed the agent's greeting so the
	// live view is never empty.
	b.transcript = []model.TranscriptEntry{{
		Speaker:   "Agent",
		Text:      "Hello, this is dispatch calling with a check-in.",
		Timestamp: "0:00",
	}}
	stop := make(chan struct{})
	b.timerStop = stop
	startedAt := b.startedAt
	b.mu.Unlock()

	go b.tick(callID, stop)
	b.sink.ApplyEvent(store.CallEvent{Type: store.EventCallStarted, CallID: callID, StartedAt: startedAt})
}

// handleUpdate replaces the transcript wholesale. The remote side delivers the
// full cumulative transcript on every update, so appending would duplicate
// turns. Empty updates leave the prior transcript alone.
func (b *Bridge) handleUpdate(callID string, transcript []model.TranscriptEntry) {
	if len(transcript) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.callID != callID || b.ended {
		return
	}
	b.transcript = transcript
}

func (b *Bridge) tick(callID string, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.mu.Lock()
			if b.callID == callID && !b.ended {
				b.seconds++
			}
			b.mu.Unlock()
		case <-stop:
			return
		}
	}
}

// finish tears the session down exactly once, no matter how many end triggers
// land (local end racing a remote call_ended, say).
func (b *Bridge) finish(callID string) {
	b.mu.Lock()
	if b.callID != callID || b.ended {
		b.mu.Unlock()
		return
	}
	b.ended = true
	b.state = StateEnded
	b.stopTimerLocked()
	transport := b.transport
	b.transport = nil
	result := Result{
		CallID:     callID,
		Duration:   model.FormatSeconds(b.seconds),
		Transcript: append([]model.TranscriptEntry(nil), b.transcript...),
	}
	startedAt := b.startedAt
	b.mu.Unlock()

	if transport != nil {
		_ = transport.Close()
	}
	b.sink.ApplyEvent(store.CallEvent{
		Type:       store.EventCallEnded,
		CallID:     callID,
		StartedAt:  startedAt,
		Duration:   result.Duration,
		Transcript: result.Transcript,
	})
	if b.onEnded != nil {
		b.onEnded(result)
	}
}

func (b *Bridge) fail(callID string, err error) {
	msg := "session error"
	if err != nil {
		msg = err.Error()
	}
	b.mu.Lock()
	if b.callID != callID || b.ended {
		b.mu.Unlock()
		return
	}
	b.ended = true
	b.state = StateFailed
	b.errMsg = msg
	b.stopTimerLocked()
	transport := b.transport
	b.transport = nil
	b.mu.Unlock()

	if transport != nil {
		_ = transport.Close()
	}
	b.logger.Error("session failed", slog.String("call_id", callID), slog.String("error", msg))
	b.sink.MarkFailed(callID, msg)
}

func (b *Bridge) stopTimerLocked() {
	if b.timerStop != nil {
		close(b.timerStop)
		b.timerStop = nil
	}
}
