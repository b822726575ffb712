package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"socialrisk/internal/service"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ResultHandler serves persisted results to staff
type ResultHandler struct {
	surveySvc *service.SurveyService
}

// NewResultHandler creates a new result handler
func NewResultHandler(surveySvc *service.SurveyService) *ResultHandler {
	return &ResultHandler{surveySvc: surveySvc}
}

func parseLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// List handles GET /v1/results/{patientId}
func (h *ResultHandler) List(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patientId"]

	submissions, err := h.surveySvc.Results(r.Context(), patientID, parseLimit(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": submissions})
}

// Latest handles GET /v1/results/{patientId}/latest
func (h *ResultHandler) Latest(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patientId"]

	submission, err := h.surveySvc.LatestResult(r.Context(), patientID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if submission == nil {
		writeError(w, http.StatusNotFound, "no results for patient")
		return
	}

	resp := map[string]interface{}{"submission": submission}
	if rank, err := h.surveySvc.TriageRank(r.Context(), patientID); err == nil && rank > 0 {
		resp["triageRank"] = rank
	}
	writeJSON(w, http.StatusOK, resp)
}

// Triage handles GET /v1/triage
func (h *ResultHandler) Triage(w http.ResponseWriter, r *http.Request) {
	entries, err := h.surveySvc.Triage(r.Context(), parseLimit(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"patients": entries})
}

// Stats handles GET /v1/stats
func (h *ResultHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.surveySvc.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
