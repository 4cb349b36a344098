package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relaydial/relaydial/internal/cache"
	"github.com/relaydial/relaydial/internal/model"
)

// CallAPI is the slice of the platform client the call store depends on.
type CallAPI interface {
	ListCalls(ctx context.Context) ([]model.Call, error)
	GetCall(ctx context.Context, callID string) (model.Call, error)
	CreatePhoneCall(ctx context.Context, req model.CallRequest) (model.Call, error)
	CreateWebCall(ctx context.Context, agentID string, vars map[string]string) (model.WebCall, error)
}

// CallEventType tags a reconciliation event. The session bridge and the
// webhook ingestion path both emit these, so the two sources converge on
// identical store mutations.
type CallEventType string

const (
	EventCallStarted  CallEventType = "call_started"
	EventCallEnded    CallEventType = "call_ended"
	EventCallAnalyzed CallEventType = "call_analyzed"
)

// CallEvent is an already-parsed session event to reconcile into the store.
type CallEvent struct {
	Type   CallEventType
	CallID string

	// call_started
	From      string
	To        string
	Direction string

	// call_ended
	StartedAt           time.Time
	EndedAt             time.Time
	Duration            string // "m:ss", used when the timestamps are absent
	DisconnectionReason string
	Transcript          []model.TranscriptEntry
	Extracted           *model.ExtractedData

	// call_analyzed
	Summary    string
	Sentiment  string
	Successful *bool
}

// CallStore caches the call collection, tracks the active call, and is the
// single reconciliation point for session and webhook events.
type CallStore struct {
	api   CallAPI
	cache *cache.Store
	opts  options

	mu           sync.Mutex
	guard        guard
	items        []model.Call
	activeCallID string
	search       string
	statusFilter string
}

// NewCallStore creates a call store.
func NewCallStore(api CallAPI, c *cache.Store, opts ...Option) *CallStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &CallStore{api: api, cache: c, opts: o, statusFilter: "all"}
}

// Fetch loads the call history. Same guard semantics as the agent store: the
// loading flag dedupes best-effort, failures leave the prior collection
// untouched, and read errors are stored rather than returned.
func (s *CallStore) Fetch(ctx context.Context, force bool) {
	s.mu.Lock()
	if s.guard.loading {
		s.mu.Unlock()
		return
	}
	if !force {
		if s.guard.fresh(s.opts.now(), s.opts.ttl) {
			s.mu.Unlock()
			return
		}
		var cached []model.Call
		if fetchedAt, ok := s.cache.Load(callsCacheKey, callsCollection, &cached); ok {
			s.items = cached
			s.guard.lastFetched = fetchedAt
			s.guard.errMsg = ""
			s.mu.Unlock()
			return
		}
	}
	s.guard.loading = true
	s.mu.Unlock()

	items, err := s.api.ListCalls(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.guard.loading = false
	if err != nil {
		s.guard.errMsg = fmt.Sprintf("failed to load calls: %v", err)
		s.opts.logger.Error("call fetch failed", slog.String("error", err.Error()))
		return
	}
	s.items = items
	s.guard.lastFetched = s.opts.now()
	s.guard.errMsg = ""
	s.cache.Save(callsCacheKey, callsCollection, items, s.guard.lastFetched)
}

// EnsureLoaded fetches only if stale and not already loading.
func (s *CallStore) EnsureLoaded(ctx context.Context) {
	s.Fetch(ctx, false)
}

// StartCall initiates an outbound phone call. This is the one path with true
// optimistic semantics: a placeholder is inserted immediately and then either
// reconciled with the remote-assigned identity or marked failed.
func (s *CallStore) StartCall(ctx context.Context, req model.CallRequest) (model.Call, error) {
	placeholder := model.Call{
		ID:                  "pending-" + uuid.NewString(),
		DriverName:          req.DriverName,
		PhoneNumber:         req.PhoneNumber,
		LoadNumber:          req.LoadNumber,
		AgentID:             req.AgentID,
		Scenario:            req.Scenario,
		Status:              model.CallPending,
		Timestamp:           s.opts.now(),
		PickupLocation:      req.PickupLocation,
		DeliveryLocation:    req.DeliveryLocation,
		EstimatedPickupTime: req.EstimatedPickupTime,
		Notes:               req.Notes,
	}
	s.mu.Lock()
	s.items = append([]model.Call{placeholder}, s.items...)
	s.activeCallID = placeholder.ID
	s.mu.Unlock()

	call, err := s.api.CreatePhoneCall(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		for i := range s.items {
			if s.items[i].ID == placeholder.ID {
				s.items[i].Status = model.CallFailed
				s.items[i].Outcome = "Call failed to start"
				break
			}
		}
		s.activeCallID = ""
		s.guard.errMsg = fmt.Sprintf("failed to start call: %v", err)
		s.opts.logger.Error("call start failed", slog.String("error", err.Error()))
		return model.Call{}, err
	}
	for i := range s.items {
		if s.items[i].ID == placeholder.ID {
			s.items[i] = call
			break
		}
	}
	s.activeCallID = call.ID
	s.guard.errMsg = ""
	s.cache.Invalidate(callsCacheKey)
	return call, nil
}

// StartWebCall registers a browser session with the platform and inserts a
// pending call carrying the web sentinel phone number. The returned handle
// holds the access token the real-time transport needs.
func (s *CallStore) StartWebCall(ctx context.Context, agentID string, req model.CallRequest) (model.WebCall, error) {
	vars := map[string]string{}
	if req.DriverName != "" {
		vars["driver_name"] = req.DriverName
	}
	if req.PhoneNumber != "" {
		vars["phone_number"] = req.PhoneNumber
	}
	if req.LoadNumber != "" {
		vars["load_number"] = req.LoadNumber
	}

	web, err := s.api.CreateWebCall(ctx, agentID, vars)
	if err != nil {
		s.setError(fmt.Sprintf("failed to start web call: %v", err))
		return model.WebCall{}, err
	}

	s.mu.Lock()
	s.items = append([]model.Call{{
		ID:          web.CallID,
		DriverName:  req.DriverName,
		PhoneNumber: model.PhoneNumberWeb,
		LoadNumber:  req.LoadNumber,
		AgentID:     agentID,
		Scenario:    req.Scenario,
		Status:      model.CallPending,
		Timestamp:   s.opts.now(),
	}}, s.items...)
	s.activeCallID = web.CallID
	s.guard.errMsg = ""
	s.mu.Unlock()

	s.cache.Invalidate(callsCacheKey)
	return web, nil
}

// Get fetches the full call record (including transcript) and merges it into
// the collection.
func (s *CallStore) Get(ctx context.Context, callID string) (model.Call, error) {
	call, err := s.api.GetCall(ctx, callID)
	if err != nil {
		s.setError(fmt.Sprintf("failed to load call: %v", err))
		return model.Call{}, err
	}
	s.mu.Lock()
	s.merge(call)
	s.mu.Unlock()
	return call, nil
}

// ApplyEvent reconciles a session event into the collection. Both the live
// session bridge and webhook ingestion feed through here.
func (s *CallStore) ApplyEvent(ev CallEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.items {
		if s.items[i].ID == ev.CallID {
			idx = i
			break
		}
	}
	if idx == -1 {
		// Unseen call (inbound, or started from another client); register it.
		s.items = append([]model.Call{{
			ID:          ev.CallID,
			DriverName:  "Unknown Driver",
			LoadNumber:  "Unknown Load",
			PhoneNumber: ev.To,
			Status:      model.CallPending,
			Timestamp:   s.opts.now(),
		}}, s.items...)
		idx = 0
	}
	call := &s.items[idx]

	switch ev.Type {
	case EventCallStarted:
		call.Status = model.CallInProgress
		if ev.To != "" && call.PhoneNumber == "" {
			call.PhoneNumber = ev.To
		}
		if !ev.StartedAt.IsZero() {
			call.Timestamp = ev.StartedAt
		}

	case EventCallEnded:
		call.Status = model.CallCompleted
		if !ev.EndedAt.IsZero() && ev.EndedAt.After(ev.StartedAt) {
			call.Duration = model.FormatSeconds(int(ev.EndedAt.Sub(ev.StartedAt) / time.Second))
		} else if ev.Duration != "" {
			call.Duration = ev.Duration
		}
		if len(ev.Transcript) > 0 {
			call.Transcript = ev.Transcript
		}
		if ev.Extracted != nil {
			call.ExtractedData = *ev.Extracted
		}
		if s.activeCallID == ev.CallID {
			s.activeCallID = ""
		}

	case EventCallAnalyzed:
		if ev.Summary != "" {
			call.Outcome = ev.Summary
		}
		if ev.Successful != nil {
			call.ExtractedData.Successful = ev.Successful
			if *ev.Successful {
				call.Confidence = 0.95
			} else {
				call.Confidence = 0.3
			}
		}
		if ev.Sentiment != "" {
			if call.ExtractedData.Extra == nil {
				call.ExtractedData.Extra = make(map[string]any)
			}
			call.ExtractedData.Extra["user_sentiment"] = ev.Sentiment
		}
	}
}

// MarkFailed marks a call failed (used when a live session errors out).
func (s *CallStore) MarkFailed(callID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == callID {
			s.items[i].Status = model.CallFailed
			if reason != "" {
				s.items[i].Outcome = reason
			}
			break
		}
	}
	if s.activeCallID == callID {
		s.activeCallID = ""
	}
}

// SetFilter updates the store's search text and status filter.
func (s *CallStore) SetFilter(search, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = search
	if status == "" {
		status = "all"
	}
	s.statusFilter = status
}

// Filtered returns the calls matching the store's current filter state.
func (s *CallStore) Filtered() []model.Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FilterCalls(s.items, s.search, s.statusFilter)
}

// Calls returns a copy of the current collection.
func (s *CallStore) Calls() []model.Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Call, len(s.items))
	copy(out, s.items)
	return out
}

// Stats derives call statistics from the current collection.
func (s *CallStore) Stats() CallStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeCallStats(s.items)
}

// ActiveCallID returns the in-flight call's identity, or "".
func (s *CallStore) ActiveCallID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeCallID
}

// Loading reports whether a fetch is in flight.
func (s *CallStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guard.loading
}

// Error returns the last fetch/mutation error message, or "".
func (s *CallStore) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guard.errMsg
}

// LastFetched returns the time of the last successful fetch.
func (s *CallStore) LastFetched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guard.lastFetched
}

func (s *CallStore) merge(call model.Call) {
	for i := range s.items {
		if s.items[i].ID == call.ID {
			s.items[i] = call
			return
		}
	}
	s.items = append(s.items, call)
}

func (s *CallStore) setError(msg string) {
	s.mu.Lock()
	s.guard.errMsg = msg
	s.mu.Unlock()
	s.opts.logger.Error(msg)
}
