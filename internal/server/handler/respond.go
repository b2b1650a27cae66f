package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/LaithAlz/me-agent/internal/agent"
	"github.com/LaithAlz/me-agent/internal/reasoner"
)

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// mapError переводит доменные ошибки в HTTP-статусы.
// Сырая 500 наружу не уходит для известных классов отказов.
func mapError(w http.ResponseWriter, err error) {
	var vErr *agent.ValidationError
	if errors.As(err, &vErr) {
		respondError(w, http.StatusUnprocessableEntity, vErr.Error())
		return
	}

	if errors.Is(err, agent.ErrSelectionTimeout) {
		respondError(w, http.StatusGatewayTimeout, "selection timed out")
		return
	}

	var uErr *reasoner.UpstreamError
	if errors.As(err, &uErr) {
		respondJSON(w, http.StatusBadGateway, map[string]interface{}{
			"message":         "upstream failed during " + uErr.Stage,
			"upstream_status": uErr.Status,
		})
		return
	}

	respondError(w, http.StatusInternalServerError, "internal error")
}
