package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/relaydial/relaydial/internal/model"
	"github.com/relaydial/relaydial/internal/store"
)

type fakeTransport struct {
	mu       sync.Mutex
	events   chan Event
	startErr error
	muteErr  error
	started  []CallConfig
	stopped  int
	muted    []bool
	closed   int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan Event, 16)}
}

func (f *fakeTransport) StartCall(ctx context.Context, cfg CallConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, cfg)
	return f.startErr
}

func (f *fakeTransport) StopCall() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	return nil
}

func (f *fakeTransport) SetMuted(muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.muteErr != nil {
		return f.muteErr
	}
	f.muted = append(f.muted, muted)
	return nil
}

func (f *fakeTransport) Events() <-chan Event { return f.events }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

// recordingSink captures reconciliation events and signals on terminal ones so
// tests can wait without sleeping.
type recordingSink struct {
	mu       sync.Mutex
	events   []store.CallEvent
	failures []string
	done     chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{done: make(chan struct{}, 4)}
}

func (s *recordingSink) ApplyEvent(ev store.CallEvent) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	if ev.Type == store.EventCallEnded {
		s.done <- struct{}{}
	}
}

func (s *recordingSink) MarkFailed(callID, reason string) {
	s.mu.Lock()
	s.failures = append(s.failures, callID+": "+reason)
	s.mu.Unlock()
	s.done <- struct{}{}
}

func (s *recordingSink) wait(t *testing.T) {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a terminal sink event")
	}
}

func (s *recordingSink) eventTypes() []store.CallEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.CallEventType, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Type
	}
	return out
}

func grantPermission(ctx context.Context) error { return nil }

func waitForState(t *testing.T, b *Bridge, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %q, want %q", b.State(), want)
}

func TestBridgeHappyPath(t *testing.T) {
	transport := newFakeTransport()
	sink := newRecordingSink()
	resCh := make(chan Result, 1)
	b := NewBridge(grantPermission, func() Transport { return transport }, sink,
		WithOnEnded(func(r Result) { resCh <- r }))

	if err := b.Start(context.Background(), "web-1", "tok"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := transport.started[0]; got.CallID != "web-1" || got.AccessToken != "tok" {
		t.Fatalf("transport config = %+v", got)
	}

	transport.events <- Event{Type: EventStarted}
	waitForState(t, b, StateActive)
	if tr := b.Transcript(); len(tr) != 1 || tr[0].Speaker != "Agent" {
		t.Fatalf("greeting not seeded: %+v", tr)
	}

	transport.events <- Event{Type: EventUpdate, Transcript: []model.TranscriptEntry{
		{Speaker: "Agent", Text: "Hi, this is dispatch.", Timestamp: "0:00"},
		{Speaker: "Driver", Text: "Hey, I'm on I-10.", Timestamp: "0:04"},
	}}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(b.Transcript()) != 2 {
		time.Sleep(5 * time.Millisecond)
	}
	if tr := b.Transcript(); len(tr) != 2 || tr[1].Speaker != "Driver" {
		t.Fatalf("transcript not replaced: %+v", tr)
	}

	transport.events <- Event{Type: EventEnded}
	var result Result
	select {
	case result = <-resCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the completion callback")
	}
	sink.wait(t)
	if b.State() != StateEnded {
		t.Fatalf("state = %q, want ended", b.State())
	}
	if result.CallID != "web-1" {
		t.Fatalf("completion result: %+v", result)
	}
	if len(result.Transcript) != 2 {
		t.Fatalf("completion transcript: %+v", result.Transcript)
	}
	types := sink.eventTypes()
	if len(types) != 2 || types[0] != store.EventCallStarted || types[1] != store.EventCallEnded {
		t.Fatalf("sink events = %v", types)
	}
}

func TestBridgeStartIsIdempotentForSameCall(t *testing.T) {
	var created atomic.Int32
	transport := newFakeTransport()
	factory := func() Transport {
		created.Add(1)
		return transport
	}
	b := NewBridge(grantPermission, factory, newRecordingSink())

	if err := b.Start(context.Background(), "web-1", "tok"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	transport.events <- Event{Type: EventStarted}
	waitForState(t, b, StateActive)

	if err := b.Start(context.Background(), "web-1", "tok"); err != nil {
		t.Fatalf("repeat Start: %v", err)
	}
	if created.Load() != 1 {
		t.Fatalf("factory invoked %d times, want 1", created.Load())
	}

	if err := b.Start(context.Background(), "web-2", "tok"); err == nil {
		t.Fatal("Start for a different call while in flight should error")
	}
}

func TestBridgePermissionDeniedIsRecoverable(t *testing.T) {
	denied := errors.New("blocked")
	allow := false
	permission := func(ctx context.Context) error {
		if allow {
			return nil
		}
		return denied
	}
	transport := newFakeTransport()
	b := NewBridge(permission, func() Transport { return transport }, newRecordingSink())

	err := b.Start(context.Background(), "web-1", "tok")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Start error = %v, want ErrPermissionDenied", err)
	}
	if b.State() != StatePermissionDenied {
		t.Fatalf("state = %q, want permission-denied", b.State())
	}

	allow = true
	if err := b.Start(context.Background(), "web-1", "tok"); err != nil {
		t.Fatalf("retry after grant: %v", err)
	}
	if b.State() != StateConnecting {
		t.Fatalf("state after retry = %q, want connecting", b.State())
	}
	if b.Error() != "" {
		t.Fatalf("error not cleared on retry: %q", b.Error())
	}
}

func TestBridgeEndRacingRemoteEndFinishesOnce(t *testing.T) {
	transport := newFakeTransport()
	sink := newRecordingSink()
	var endedCalls atomic.Int32
	b := NewBridge(grantPermission, func() Transport { return transport }, sink,
		WithOnEnded(func(Result) { endedCalls.Add(1) }))

	if err := b.Start(context.Background(), "web-1", "tok"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	transport.events <- Event{Type: EventStarted}
	waitForState(t, b, StateActive)

	if err := b.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	// Remote end lands after the local one; teardown must not run again.
	transport.events <- Event{Type: EventEnded}
	close(transport.events)
	sink.wait(t)
	time.Sleep(20 * time.Millisecond)

	if got := endedCalls.Load(); got != 1 {
		t.Fatalf("completion callback ran %d times, want 1", got)
	}
	ended := 0
	for _, typ := range sink.eventTypes() {
		if typ == store.EventCallEnded {
			ended++
		}
	}
	if ended != 1 {
		t.Fatalf("call_ended emitted %d times, want 1", ended)
	}
	if transport.stopped != 1 {
		t.Fatalf("StopCall called %d times, want 1", transport.stopped)
	}
}

func TestBridgeTransportErrorMarksCallFailed(t *testing.T) {
	transport := newFakeTransport()
	sink := newRecordingSink()
	b := NewBridge(grantPermission, func() Transport { return transport }, sink)

	if err := b.Start(context.Background(), "web-1", "tok"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	transport.events <- Event{Type: EventError, Err: errors.New("socket reset")}
	sink.wait(t)

	if b.State() != StateFailed {
		t.Fatalf("state = %q, want failed", b.State())
	}
	if b.Error() != "socket reset" {
		t.Fatalf("error = %q", b.Error())
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.failures) != 1 || sink.failures[0] != "web-1: socket reset" {
		t.Fatalf("failures = %v", sink.failures)
	}
}

func TestBridgeStartCallFailure(t *testing.T) {
	transport := newFakeTransport()
	transport.startErr = errors.New("dial refused")
	sink := newRecordingSink()
	b := NewBridge(grantPermission, func() Transport { return transport }, sink)

	if err := b.Start(context.Background(), "web-1", "tok"); err == nil {
		t.Fatal("Start returned nil error")
	}
	if b.State() != StateFailed {
		t.Fatalf("state = %q, want failed", b.State())
	}
	if transport.closed != 1 {
		t.Fatalf("transport closed %d times, want 1", transport.closed)
	}
}

func TestBridgeToggleMute(t *testing.T) {
	transport := newFakeTransport()
	b := NewBridge(grantPermission, func() Transport { return transport }, newRecordingSink())

	if err := b.ToggleMute(); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("ToggleMute without session = %v, want ErrNoActiveSession", err)
	}

	if err := b.Start(context.Background(), "web-1", "tok"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := b.ToggleMute(); err != nil {
		t.Fatalf("ToggleMute: %v", err)
	}
	if !b.Muted() {
		t.Fatal("mute flag not set after successful toggle")
	}

	// A transport refusal leaves the local flag where it was.
	transport.mu.Lock()
	transport.muteErr = errors.New("not connected")
	transport.mu.Unlock()
	if err := b.ToggleMute(); err == nil {
		t.Fatal("ToggleMute with failing transport returned nil")
	}
	if !b.Muted() {
		t.Fatal("mute flag flipped despite transport failure")
	}
}
