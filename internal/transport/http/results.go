package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/domain"
)

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// ServeResults writes the ranked scores of the session named in the URL.
func (h *WSHandler) ServeResults(w http.ResponseWriter, r *http.Request) {
	code := domain.SessionCode(chi.URLParam(r, "code"))
	lb, err := h.engine.Results(r.Context(), code)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrSessionNotFound) {
			status = http.StatusNotFound
		} else {
			log.Error().Err(err).Str("session", string(code)).Msg("results lookup failed")
		}
		writeJSON(w, status, errorResponse{Error: err.Error(), Reason: domain.Reason(err)})
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}
