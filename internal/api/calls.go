package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relaydial/relaydial/internal/model"
	"github.com/relaydial/relaydial/internal/store"
)

func (a *API) handleListCalls(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("refresh") == "true"
	a.Calls.Fetch(r.Context(), force)
	if msg := a.Calls.Error(); msg != "" && len(a.Calls.Calls()) == 0 {
		respondJSON(w, http.StatusBadGateway, map[string]string{"detail": msg})
		return
	}

	search := r.URL.Query().Get("search")
	status := r.URL.Query().Get("status")
	calls := store.FilterCalls(a.Calls.Calls(), search, status)
	respondJSON(w, http.StatusOK, a.withAgentNames(r, calls))
}

// withAgentNames fills each call's display name from the agent catalog.
// Names already present (or unknown agent IDs) are left alone.
func (a *API) withAgentNames(r *http.Request, calls []model.Call) []model.Call {
	a.Agents.EnsureLoaded(r.Context())
	names := make(map[string]string)
	for _, agent := range a.Agents.Agents() {
		names[agent.ID] = agent.Name
	}
	for i := range calls {
		if calls[i].AgentName == "" {
			calls[i].AgentName = names[calls[i].AgentID]
		}
	}
	return calls
}

func (a *API) handleGetCall(w http.ResponseWriter, r *http.Request) {
	call, err := a.Calls.Get(r.Context(), chi.URLParam(r, "callID"))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	resolved := a.withAgentNames(r, []model.Call{call})
	respondJSON(w, http.StatusOK, resolved[0])
}

func (a *API) handleCreateCall(w http.ResponseWriter, r *http.Request) {
	var req model.CallRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}
	if req.PhoneNumber == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "phoneNumber is required"})
		return
	}
	call, err := a.Calls.StartCall(r.Context(), req)
	if err != nil {
		a.Metrics.CallsFailed.Inc()
		a.respondError(w, r, err)
		return
	}
	a.Metrics.CallsStarted.WithLabelValues(orUnknown(req.Scenario)).Inc()
	respondJSON(w, http.StatusCreated, call)
}

func (a *API) handleCreateWebCall(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentID string `json:"agentId"`
		model.CallRequest
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}
	if req.AgentID == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "agentId is required"})
		return
	}
	web, err := a.Calls.StartWebCall(r.Context(), req.AgentID, req.CallRequest)
	if err != nil {
		a.Metrics.CallsFailed.Inc()
		a.respondError(w, r, err)
		return
	}
	a.Metrics.CallsStarted.WithLabelValues("web").Inc()
	respondJSON(w, http.StatusCreated, web)
}

// handleStartTestCall starts a call with driver context from query-style
// fields, the shape the dashboard's test-call button sends.
func (a *API) handleStartTestCall(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DriverName  string `json:"driverName"`
		PhoneNumber string `json:"phoneNumber"`
		LoadNumber  string `json:"loadNumber"`
		AgentID     string `json:"agentId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}
	if req.DriverName == "" || req.PhoneNumber == "" || req.LoadNumber == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "driverName, phoneNumber, and loadNumber are required"})
		return
	}

	call, err := a.Calls.StartCall(r.Context(), model.CallRequest{
		DriverName:  req.DriverName,
		PhoneNumber: req.PhoneNumber,
		LoadNumber:  req.LoadNumber,
		AgentID:     req.AgentID,
		Scenario:    "test_call",
	})
	if err != nil {
		a.Metrics.CallsFailed.Inc()
		a.respondError(w, r, err)
		return
	}
	a.Metrics.CallsStarted.WithLabelValues("test_call").Inc()
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"call_id": call.ID,
		"message": fmt.Sprintf("Test call initiated to %s at %s", req.DriverName, req.PhoneNumber),
		"context": map[string]string{
			"driver_name":  req.DriverName,
			"load_number":  req.LoadNumber,
			"phone_number": req.PhoneNumber,
		},
	})
}

// handleTriggerCall dials any number with minimal context.
func (a *API) handleTriggerCall(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ToNumber string `json:"toNumber"`
		AgentID  string `json:"agentId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}
	if req.ToNumber == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "toNumber is required"})
		return
	}

	call, err := a.Calls.StartCall(r.Context(), model.CallRequest{
		PhoneNumber: req.ToNumber,
		AgentID:     req.AgentID,
	})
	if err != nil {
		a.Metrics.CallsFailed.Inc()
		a.respondError(w, r, err)
		return
	}
	a.Metrics.CallsStarted.WithLabelValues("manual").Inc()
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "call_id": call.ID})
}

func (a *API) handleCallStats(w http.ResponseWriter, r *http.Request) {
	a.Calls.EnsureLoaded(r.Context())
	respondJSON(w, http.StatusOK, a.Calls.Stats())
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
