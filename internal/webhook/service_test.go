package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/relaydial/relaydial/internal/cache"
	"github.com/relaydial/relaydial/internal/model"
	"github.com/relaydial/relaydial/internal/store"
)

func mustCache(t *testing.T) *cache.Store {
	t.Helper()
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

type captureSink struct {
	events []store.CallEvent
}

func (c *captureSink) ApplyEvent(ev store.CallEvent) {
	c.events = append(c.events, ev)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sign(key string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"call_started","call":{"call_id":"c1"}}`)

	tests := []struct {
		name      string
		apiKey    string
		signature string
		wantErr   bool
	}{
		{"valid signature", "secret", sign("secret", body), false},
		{"wrong signature", "secret", sign("other-key", body), true},
		{"garbage signature", "secret", "deadbeef", true},
		{"missing signature proceeds", "secret", "", false},
		{"no key configured proceeds", "", "anything", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.apiKey, &captureSink{}, discardLogger())
			err := svc.VerifySignature(body, tt.signature)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSignature) {
					t.Fatalf("err = %v, want ErrInvalidSignature", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("VerifySignature: %v", err)
			}
		})
	}
}

func TestProcessCallEventRejectsBadSignature(t *testing.T) {
	sink := &captureSink{}
	svc := NewService("secret", sink, discardLogger())
	body := []byte(`{"event":"call_ended","call":{"call_id":"c1"}}`)

	_, err := svc.ProcessCallEvent(body, "not-the-signature")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
	if len(sink.events) != 0 {
		t.Fatalf("rejected webhook still reconciled: %+v", sink.events)
	}
}

func TestProcessCallStarted(t *testing.T) {
	sink := &captureSink{}
	svc := NewService("secret", sink, discardLogger())
	body := []byte(`{
		"event": "call_started",
		"call": {
			"call_id": "c1",
			"from_number": "+15550000000",
			"to_number": "+15551234567",
			"direction": "outbound",
			"start_timestamp": 1700000000000
		}
	}`)

	res, err := svc.ProcessCallEvent(body, sign("secret", body))
	if err != nil {
		t.Fatalf("ProcessCallEvent: %v", err)
	}
	if res.Status != "call_started_processed" || res.CallID != "c1" {
		t.Fatalf("result = %+v", res)
	}
	if len(sink.events) != 1 {
		t.Fatalf("got %d events", len(sink.events))
	}
	ev := sink.events[0]
	if ev.Type != store.EventCallStarted || ev.To != "+15551234567" {
		t.Fatalf("event = %+v", ev)
	}
	if ev.StartedAt.UnixMilli() != 1700000000000 {
		t.Fatalf("started at = %v", ev.StartedAt)
	}
}

func TestProcessCallEndedRunsExtraction(t *testing.T) {
	sink := &captureSink{}
	svc := NewService("secret", sink, discardLogger())
	body := []byte(`{
		"event": "call_ended",
		"call": {
			"call_id": "c1",
			"disconnection_reason": "agent_hangup",
			"start_timestamp": 1700000000000,
			"end_timestamp": 1700000090000,
			"transcript_object": [
				{"role": "agent", "content": "Hi, this is dispatch with a check-in.", "words": [{"word": "Hi", "start": 0.4}]},
				{"role": "user", "content": "I'm driving on I-10, ETA around 3:30 PM.", "words": [{"word": "I'm", "start": 5.2}]}
			]
		}
	}`)

	res, err := svc.ProcessCallEvent(body, sign("secret", body))
	if err != nil {
		t.Fatalf("ProcessCallEvent: %v", err)
	}
	if res.Status != "call_ended_processed" {
		t.Fatalf("result = %+v", res)
	}

	ev := sink.events[0]
	if ev.Type != store.EventCallEnded {
		t.Fatalf("event type = %q", ev.Type)
	}
	if len(ev.Transcript) != 2 {
		t.Fatalf("transcript = %+v", ev.Transcript)
	}
	if ev.Transcript[0].Speaker != "Agent" || ev.Transcript[0].Timestamp != "0:00" {
		t.Fatalf("turn 0 = %+v", ev.Transcript[0])
	}
	if ev.Transcript[1].Speaker != "Driver" || ev.Transcript[1].Timestamp != "0:05" {
		t.Fatalf("turn 1 = %+v", ev.Transcript[1])
	}
	if ev.Extracted == nil {
		t.Fatal("no extraction ran on a transcript-bearing call")
	}
	if ev.Extracted.DriverCheckin == nil || ev.Extracted.DriverCheckin.CurrentLocation != "I-10" {
		t.Fatalf("extracted = %+v", ev.Extracted)
	}
	if ev.EndedAt.Sub(ev.StartedAt).Seconds() != 90 {
		t.Fatalf("timestamps: %v -> %v", ev.StartedAt, ev.EndedAt)
	}
}

func TestProcessCallEndedWithoutTranscript(t *testing.T) {
	sink := &captureSink{}
	svc := NewService("secret", sink, discardLogger())
	body := []byte(`{"event": "call_ended", "call": {"call_id": "c1"}}`)

	if _, err := svc.ProcessCallEvent(body, sign("secret", body)); err != nil {
		t.Fatalf("ProcessCallEvent: %v", err)
	}
	ev := sink.events[0]
	if ev.Extracted != nil {
		t.Fatal("extraction ran on an empty transcript")
	}
	if !ev.StartedAt.IsZero() || !ev.EndedAt.IsZero() {
		t.Fatalf("zero timestamps expected, got %v -> %v", ev.StartedAt, ev.EndedAt)
	}
}

func TestProcessCallAnalyzed(t *testing.T) {
	sink := &captureSink{}
	svc := NewService("secret", sink, discardLogger())
	body := []byte(`{
		"event": "call_analyzed",
		"call": {
			"call_id": "c1",
			"call_analysis": {
				"call_summary": "Driver confirmed arrival at the receiver.",
				"user_sentiment": "Positive",
				"call_successful": true
			}
		}
	}`)

	res, err := svc.ProcessCallEvent(body, sign("secret", body))
	if err != nil {
		t.Fatalf("ProcessCallEvent: %v", err)
	}
	if res.Status != "call_analyzed_processed" {
		t.Fatalf("result = %+v", res)
	}
	ev := sink.events[0]
	if ev.Summary != "Driver confirmed arrival at the receiver." {
		t.Fatalf("summary = %q", ev.Summary)
	}
	if ev.Sentiment != "Positive" {
		t.Fatalf("sentiment = %q", ev.Sentiment)
	}
	if ev.Successful == nil || !*ev.Successful {
		t.Fatal("successful verdict not carried")
	}
}

func TestProcessUnknownEvent(t *testing.T) {
	sink := &captureSink{}
	svc := NewService("secret", sink, discardLogger())
	body := []byte(`{"event": "call_transferred", "call": {"call_id": "c1"}}`)

	res, err := svc.ProcessCallEvent(body, sign("secret", body))
	if err != nil {
		t.Fatalf("ProcessCallEvent: %v", err)
	}
	if res.Status != "unknown_event" {
		t.Fatalf("result = %+v", res)
	}
	if len(sink.events) != 0 {
		t.Fatalf("unknown event reconciled: %+v", sink.events)
	}
}

func TestProcessInboundCall(t *testing.T) {
	svc := NewService("secret", &captureSink{}, discardLogger())
	body := []byte(`{"call_inbound": {"from_number": "+15551112222", "to_number": "+15550000000"}}`)

	resp, err := svc.ProcessInboundCall(body)
	if err != nil {
		t.Fatalf("ProcessInboundCall: %v", err)
	}
	if resp.CallInbound.OverrideAgentID != "" {
		t.Fatalf("override = %q, want empty (accept with configured agent)", resp.CallInbound.OverrideAgentID)
	}

	if _, err := svc.ProcessInboundCall([]byte("not json")); err == nil {
		t.Fatal("malformed inbound payload accepted")
	}
}

// Webhook ingestion and the live session bridge must land identical store
// mutations; drive a real call store through the webhook path and check the
// resulting call record.
func TestWebhookEventsConvergeOnStore(t *testing.T) {
	callStore := store.NewCallStore(nil, mustCache(t), store.WithLogger(discardLogger()))
	svc := NewService("secret", callStore, discardLogger())

	started := []byte(`{"event": "call_started", "call": {"call_id": "c1", "to_number": "+15551234567", "start_timestamp": 1700000000000}}`)
	if _, err := svc.ProcessCallEvent(started, sign("secret", started)); err != nil {
		t.Fatalf("started: %v", err)
	}

	ended := []byte(`{
		"event": "call_ended",
		"call": {
			"call_id": "c1",
			"start_timestamp": 1700000000000,
			"end_timestamp": 1700000090000,
			"transcript_object": [{"role": "user", "content": "Just arrived, door 4, POD is ready."}]
		}
	}`)
	if _, err := svc.ProcessCallEvent(ended, sign("secret", ended)); err != nil {
		t.Fatalf("ended: %v", err)
	}

	analyzed := []byte(`{
		"event": "call_analyzed",
		"call": {"call_id": "c1", "call_analysis": {"call_summary": "Arrival confirmed.", "call_successful": true}}
	}`)
	if _, err := svc.ProcessCallEvent(analyzed, sign("secret", analyzed)); err != nil {
		t.Fatalf("analyzed: %v", err)
	}

	calls := callStore.Calls()
	if len(calls) != 1 {
		t.Fatalf("store has %d calls, want 1", len(calls))
	}
	c := calls[0]
	if c.ID != "c1" || c.Status != model.CallCompleted {
		t.Fatalf("call = %+v", c)
	}
	if c.Duration != "1:30" {
		t.Fatalf("duration = %q", c.Duration)
	}
	if c.Outcome != "Arrival confirmed." {
		t.Fatalf("outcome = %q", c.Outcome)
	}
	if c.Confidence != 0.95 {
		t.Fatalf("confidence = %v", c.Confidence)
	}
	if c.ExtractedData.DriverCheckin == nil || c.ExtractedData.DriverCheckin.UnloadingStatus != "In Door 4" {
		t.Fatalf("extracted = %+v", c.ExtractedData)
	}
}
