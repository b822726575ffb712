package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"socialrisk/internal/model"
	"socialrisk/internal/service"
	"socialrisk/internal/transport/rest/middleware"
)

// SessionHandler handles a patient's screening session
type SessionHandler struct {
	surveySvc *service.SurveyService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(surveySvc *service.SurveyService) *SessionHandler {
	return &SessionHandler{surveySvc: surveySvc}
}

// SetAnswerRequest is the body of PUT /v1/session/answers/{questionId}
type SetAnswerRequest struct {
	Value model.AnswerValue `json:"value"`
}

// ToggleRequest is the body of POST /v1/session/answers/{questionId}/toggle
type ToggleRequest struct {
	Value   string `json:"value"`
	Checked bool   `json:"checked"`
}

// Get handles GET /v1/session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	patientID := middleware.GetPatientID(r.Context())
	writeJSON(w, http.StatusOK, h.surveySvc.View(r.Context(), patientID))
}

// SetGating handles PUT /v1/session/gating
func (h *SessionHandler) SetGating(w http.ResponseWriter, r *http.Request) {
	patientID := middleware.GetPatientID(r.Context())

	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.surveySvc.SetGating(r.Context(), patientID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// SetAnswer handles PUT /v1/session/answers/{questionId}
func (h *SessionHandler) SetAnswer(w http.ResponseWriter, r *http.Request) {
	patientID := middleware.GetPatientID(r.Context())
	questionID := mux.Vars(r)["questionId"]

	var req SetAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	value, err := h.surveySvc.SetAnswer(r.Context(), patientID, questionID, req.Value)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": questionID, "value": value})
}

// Toggle handles POST /v1/session/answers/{questionId}/toggle
func (h *SessionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	patientID := middleware.GetPatientID(r.Context())
	questionID := mux.Vars(r)["questionId"]

	var req ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	value, err := h.surveySvc.Toggle(r.Context(), patientID, questionID, req.Value, req.Checked)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": questionID, "value": value})
}

// Validate handles POST /v1/session/validate
func (h *SessionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	patientID := middleware.GetPatientID(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{"missing": h.surveySvc.Validate(r.Context(), patientID)})
}

// Submit handles POST /v1/session/submit
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	patientID := middleware.GetPatientID(r.Context())

	result, err := h.surveySvc.Submit(r.Context(), patientID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Reset handles DELETE /v1/session
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	patientID := middleware.GetPatientID(r.Context())
	h.surveySvc.Reset(r.Context(), patientID)
	w.WriteHeader(http.StatusNoContent)
}
