package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialrisk/internal/service"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestLoggerAndRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	h := Logger(logger)(Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/session", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), `"status":500`)
	assert.Contains(t, buf.String(), `"path":"/v1/session"`)
}

func TestAuthMiddleware(t *testing.T) {
	authSvc := service.NewAuthService("staff", "pw", "secret")
	staff, err := authSvc.Login("staff", "pw")
	require.NoError(t, err)
	patient, err := authSvc.AuthenticatePatient("Kim", "1980-05-05")
	require.NoError(t, err)

	m := NewAuthMiddleware(authSvc)
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(GetStaffID(r.Context()) + "|" + GetPatientID(r.Context())))
	})

	tests := []struct {
		name     string
		mw       func(http.Handler) http.Handler
		method   string
		header   string
		wantCode int
		wantBody string
	}{
		{"staff ok", m.RequireStaff, "GET", "Bearer " + staff.Token, http.StatusOK, staff.StaffID + "|"},
		{"staff with patient token", m.RequireStaff, "GET", "Bearer " + patient.Token, http.StatusUnauthorized, ""},
		{"staff missing header", m.RequireStaff, "GET", "", http.StatusUnauthorized, ""},
		{"patient ok", m.RequirePatient, "GET", "Bearer " + patient.Token, http.StatusOK, "|" + patient.PatientID},
		{"patient lowercase scheme", m.RequirePatient, "GET", "bearer " + patient.Token, http.StatusOK, "|" + patient.PatientID},
		{"patient with staff token", m.RequirePatient, "GET", "Bearer " + staff.Token, http.StatusUnauthorized, ""},
		{"patient garbage token", m.RequirePatient, "GET", "Bearer nope", http.StatusUnauthorized, ""},
		{"preflight passes", m.RequirePatient, "OPTIONS", "", http.StatusOK, "|"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			tt.mw(echo).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}
