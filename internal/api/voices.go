package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (a *API) handleListVoices(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("refresh") == "true"
	a.Voices.Fetch(r.Context(), force)
	if msg := a.Voices.Error(); msg != "" && len(a.Voices.Voices()) == 0 {
		respondJSON(w, http.StatusBadGateway, map[string]string{"detail": msg})
		return
	}
	respondJSON(w, http.StatusOK, a.Voices.Voices())
}

func (a *API) handleGetVoice(w http.ResponseWriter, r *http.Request) {
	voiceID := chi.URLParam(r, "voiceID")

	a.Voices.EnsureLoaded(r.Context())
	if voice, ok := a.Voices.Get(voiceID); ok {
		respondJSON(w, http.StatusOK, voice)
		return
	}

	voice, err := a.Platform.GetVoice(r.Context(), voiceID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, voice)
}
