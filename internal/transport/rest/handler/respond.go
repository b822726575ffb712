package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"socialrisk/internal/model"
	"socialrisk/internal/screening"
	"socialrisk/internal/service"
)

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var missing *screening.MissingAnswersError
	switch {
	case errors.As(err, &missing):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "required answers are missing",
			"missing": missing.IDs,
		})
	case errors.Is(err, service.ErrUnknownQuestion):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidAnswer), errors.Is(err, model.ErrInvalidGating), errors.Is(err, service.ErrInvalidPatient):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
