package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relaydial/relaydial/internal/model"
)

func (a *API) handleListAgents(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("refresh") == "true"
	a.Agents.Fetch(r.Context(), force)
	if msg := a.Agents.Error(); msg != "" && len(a.Agents.Agents()) == 0 {
		respondJSON(w, http.StatusBadGateway, map[string]string{"detail": msg})
		return
	}
	respondJSON(w, http.StatusOK, a.Agents.Agents())
}

func (a *API) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := a.Agents.Get(r.Context(), chi.URLParam(r, "agentID"))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, agent)
}

func (a *API) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var in model.AgentCreate
	if err := decodeJSON(r, &in); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}
	agent, err := a.Agents.Create(r.Context(), in)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, agent)
}

func (a *API) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	var in model.AgentUpdate
	if err := decodeJSON(r, &in); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}
	agent, err := a.Agents.Update(r.Context(), chi.URLParam(r, "agentID"), in)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, agent)
}

func (a *API) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := a.Agents.Delete(r.Context(), chi.URLParam(r, "agentID")); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Agent deleted successfully"})
}

func (a *API) handleAgentVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := a.Platform.AgentVersions(r.Context(), chi.URLParam(r, "agentID"))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, versions)
}

func (a *API) handleCreateLLM(w http.ResponseWriter, r *http.Request) {
	in := struct {
		GeneralPrompt    string  `json:"general_prompt"`
		Model            string  `json:"model"`
		ModelTemperature float64 `json:"model_temperature"`
	}{
		GeneralPrompt:    "You are a helpful AI assistant.",
		Model:            "gpt-4o",
		ModelTemperature: 0.1,
	}
	if err := decodeJSON(r, &in); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}
	llmID, err := a.Platform.CreateLLM(r.Context(), in.GeneralPrompt, in.Model, in.ModelTemperature)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"llm_id": llmID})
}
