// Package api exposes the dashboard REST surface. Handlers go through the
// entity stores rather than the platform client directly, so every read
// benefits from the TTL cache.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relaydial/relaydial/internal/metrics"
	"github.com/relaydial/relaydial/internal/platform"
	"github.com/relaydial/relaydial/internal/server"
	"github.com/relaydial/relaydial/internal/store"
	"github.com/relaydial/relaydial/internal/webhook"
)

// API aggregates the handler dependencies.
type API struct {
	Agents   *store.AgentStore
	Calls    *store.CallStore
	Voices   *store.VoiceStore
	Platform *platform.Client
	Webhooks *webhook.Service
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Routes mounts the dashboard API onto a chi router.
func (a *API) Routes(r chi.Router) {
	r.Get("/health", a.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/agents", func(r chi.Router) {
			r.Get("/", a.handleListAgents)
			r.Post("/", a.handleCreateAgent)
			r.Get("/{agentID}", a.handleGetAgent)
			r.Put("/{agentID}", a.handleUpdateAgent)
			r.Delete("/{agentID}", a.handleDeleteAgent)
			r.Get("/{agentID}/versions", a.handleAgentVersions)
			r.Post("/llm", a.handleCreateLLM)
		})
		r.Route("/calls", func(r chi.Router) {
			r.Get("/", a.handleListCalls)
			r.Post("/", a.handleCreateCall)
			r.Post("/web-call", a.handleCreateWebCall)
			r.Post("/start-test-call", a.handleStartTestCall)
			r.Post("/trigger-call", a.handleTriggerCall)
			r.Get("/stats/summary", a.handleCallStats)
			r.Get("/{callID}", a.handleGetCall)
		})
		r.Route("/voices", func(r chi.Router) {
			r.Get("/", a.handleListVoices)
			r.Get("/{voiceID}", a.handleGetVoice)
		})
	})

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/call-events", a.handleCallEventsWebhook)
		r.Post("/inbound-call", a.handleInboundCallWebhook)
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError maps platform API errors to their upstream status and
// everything else to 500, recording the error on the request log line.
func (a *API) respondError(w http.ResponseWriter, r *http.Request, err error) {
	server.AddError(r.Context(), err)

	status := http.StatusInternalServerError
	var apiErr *platform.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusNotFound:
			status = http.StatusNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			status = http.StatusBadGateway
		case http.StatusUnprocessableEntity, http.StatusBadRequest:
			status = http.StatusBadRequest
		}
	}
	respondJSON(w, status, map[string]string{"detail": err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
