// Package webhook ingests platform call events and feeds them through the
// same reconciliation path the live session bridge uses, so both sources
// converge on identical store mutations.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/relaydial/relaydial/internal/model"
	"github.com/relaydial/relaydial/internal/store"
	"github.com/relaydial/relaydial/internal/transcript"
)

// SignatureHeader carries the HMAC of the request body, keyed by the platform
// API key.
const SignatureHeader = "X-Relay-Signature"

// ErrInvalidSignature rejects a webhook whose signature does not match.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// CallSink receives reconciliation events. *store.CallStore satisfies it.
type CallSink interface {
	ApplyEvent(store.CallEvent)
}

// Service verifies and processes platform webhooks.
type Service struct {
	apiKey string
	sink   CallSink
	logger *slog.Logger
}

// NewService creates a webhook service. The API key doubles as the HMAC
// secret for signature verification.
func NewService(apiKey string, sink CallSink, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{apiKey: apiKey, sink: sink, logger: logger}
}

// payloads, platform side (snake_case)

type callEventPayload struct {
	Event string          `json:"event"`
	Call  callEventRecord `json:"call"`
}

type callEventRecord struct {
	CallID              string               `json:"call_id"`
	FromNumber          string               `json:"from_number"`
	ToNumber            string               `json:"to_number"`
	Direction           string               `json:"direction"`
	DisconnectionReason string               `json:"disconnection_reason"`
	StartTimestamp      int64                `json:"start_timestamp"`
	EndTimestamp        int64                `json:"end_timestamp"`
	TranscriptObject    []transcriptTurn     `json:"transcript_object"`
	CallAnalysis        *callAnalysisPayload `json:"call_analysis"`
}

type transcriptTurn struct {
	Role    string  `json:"role"`
	Content string  `json:"content"`
	Words   []word  `json:"words,omitempty"`
	Start   float64 `json:"start,omitempty"`
}

type word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type callAnalysisPayload struct {
	CallSummary    string `json:"call_summary"`
	UserSentiment  string `json:"user_sentiment"`
	CallSuccessful *bool  `json:"call_successful"`
}

type inboundCallPayload struct {
	CallInbound struct {
		AgentID    string `json:"agent_id"`
		FromNumber string `json:"from_number"`
		ToNumber   string `json:"to_number"`
	} `json:"call_inbound"`
}

// InboundCallResponse is returned to the platform for inbound-call webhooks.
// Empty overrides accept the call with the configured agent.
type InboundCallResponse struct {
	CallInbound struct {
		OverrideAgentID  string            `json:"override_agent_id,omitempty"`
		DynamicVariables map[string]string `json:"dynamic_variables,omitempty"`
	} `json:"call_inbound"`
}

// Result summarizes a processed call event webhook.
type Result struct {
	Status string `json:"status"`
	CallID string `json:"call_id,omitempty"`
}

// VerifySignature checks the request body against the signature header. A
// missing signature or missing API key logs a warning and lets the webhook
// through, matching how the platform behaves before keys are provisioned.
func (s *Service) VerifySignature(body []byte, signature string) error {
	if signature == "" {
		s.logger.Warn("webhook missing signature, proceeding without verification")
		return nil
	}
	if s.apiKey == "" {
		s.logger.Warn("no API key configured, skipping webhook signature verification")
		return nil
	}
	mac := hmac.New(sha256.New, []byte(s.apiKey))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// ProcessCallEvent parses and reconciles a call event webhook.
func (s *Service) ProcessCallEvent(body []byte, signature string) (Result, error) {
	if err := s.VerifySignature(body, signature); err != nil {
		return Result{}, err
	}

	var payload callEventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Result{}, fmt.Errorf("parse webhook payload: %w", err)
	}

	switch payload.Event {
	case "call_started":
		return s.handleCallStarted(payload.Call), nil
	case "call_ended":
		return s.handleCallEnded(payload.Call), nil
	case "call_analyzed":
		return s.handleCallAnalyzed(payload.Call), nil
	default:
		s.logger.Warn("unknown webhook event", slog.String("event", payload.Event))
		return Result{Status: "unknown_event"}, nil
	}
}

// ProcessInboundCall handles the inbound-call registration webhook.
func (s *Service) ProcessInboundCall(body []byte) (InboundCallResponse, error) {
	var payload inboundCallPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return InboundCallResponse{}, fmt.Errorf("parse inbound call payload: %w", err)
	}
	s.logger.Info("inbound call",
		slog.String("from", payload.CallInbound.FromNumber),
		slog.String("to", payload.CallInbound.ToNumber))
	return InboundCallResponse{}, nil
}

func (s *Service) handleCallStarted(call callEventRecord) Result {
	s.logger.Info("call started",
		slog.String("call_id", call.CallID),
		slog.String("from", call.FromNumber),
		slog.String("to", call.ToNumber),
		slog.String("direction", call.Direction))

	s.sink.ApplyEvent(store.CallEvent{
		Type:      store.EventCallStarted,
		CallID:    call.CallID,
		From:      call.FromNumber,
		To:        call.ToNumber,
		Direction: call.Direction,
		StartedAt: millisTime(call.StartTimestamp),
	})
	return Result{Status: "call_started_processed", CallID: call.CallID}
}

func (s *Service) handleCallEnded(call callEventRecord) Result {
	entries := transcriptEntries(call.TranscriptObject)

	var extracted *model.ExtractedData
	if len(entries) > 0 {
		data := transcript.Process(entries)
		extracted = &data
	}

	s.logger.Info("call ended",
		slog.String("call_id", call.CallID),
		slog.String("reason", call.DisconnectionReason),
		slog.Int("transcript_entries", len(entries)))

	s.sink.ApplyEvent(store.CallEvent{
		Type:                store.EventCallEnded,
		CallID:              call.CallID,
		StartedAt:           millisTime(call.StartTimestamp),
		EndedAt:             millisTime(call.EndTimestamp),
		DisconnectionReason: call.DisconnectionReason,
		Transcript:          entries,
		Extracted:           extracted,
	})
	return Result{Status: "call_ended_processed", CallID: call.CallID}
}

func (s *Service) handleCallAnalyzed(call callEventRecord) Result {
	ev := store.CallEvent{Type: store.EventCallAnalyzed, CallID: call.CallID}
	if a := call.CallAnalysis; a != nil {
		ev.Summary = a.CallSummary
		ev.Sentiment = a.UserSentiment
		ev.Successful = a.CallSuccessful
		s.logger.Info("call analyzed",
			slog.String("call_id", call.CallID),
			slog.String("sentiment", a.UserSentiment))
	}
	s.sink.ApplyEvent(ev)
	return Result{Status: "call_analyzed_processed", CallID: call.CallID}
}

func transcriptEntries(turns []transcriptTurn) []model.TranscriptEntry {
	entries := make([]model.TranscriptEntry, 0, len(turns))
	for _, t := range turns {
		speaker := "Driver"
		if t.Role == "agent" {
			speaker = "Agent"
		}
		ts := "0:00"
		if len(t.Words) > 0 {
			ts = model.FormatSeconds(int(t.Words[0].Start))
		} else if t.Start > 0 {
			ts = model.FormatSeconds(int(t.Start))
		}
		entries = append(entries, model.TranscriptEntry{
			Speaker:   speaker,
			Text:      t.Content,
			Timestamp: ts,
		})
	}
	return entries
}

func millisTime(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
