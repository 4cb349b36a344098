package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/relaydial/relaydial/internal/webhook"
)

func (a *API) handleCallEventsWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "failed to read body"})
		return
	}
	r.Body.Close()

	// Peek the event type for the metric label before full processing.
	var peek struct {
		Event string `json:"event"`
	}
	_ = json.Unmarshal(body, &peek)

	result, err := a.Webhooks.ProcessCallEvent(body, r.Header.Get(webhook.SignatureHeader))
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			a.Metrics.WebhooksRejected.Inc()
			respondJSON(w, http.StatusUnauthorized, map[string]string{"detail": err.Error()})
			return
		}
		a.respondError(w, r, err)
		return
	}
	a.Metrics.WebhooksReceived.WithLabelValues(orUnknown(peek.Event)).Inc()
	if result.Status == "call_ended_processed" {
		a.Metrics.CallsCompleted.Inc()
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "Webhook processed successfully", "result": result})
}

func (a *API) handleInboundCallWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "failed to read body"})
		return
	}
	r.Body.Close()

	resp, err := a.Webhooks.ProcessInboundCall(body)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.Metrics.WebhooksReceived.WithLabelValues("inbound_call").Inc()
	respondJSON(w, http.StatusOK, resp)
}
