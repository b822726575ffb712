package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"socialrisk/internal/cache"
	"socialrisk/internal/catalog"
	"socialrisk/internal/model"
	"socialrisk/internal/service"
	"socialrisk/internal/session"
	"socialrisk/internal/transport/ws"
)

type mockResultRepo struct {
	mock.Mock
}

func (m *mockResultRepo) Create(ctx context.Context, s *model.Submission) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockResultRepo) GetLatestByPatient(ctx context.Context, patientID string) (*model.Submission, error) {
	args := m.Called(ctx, patientID)
	s, _ := args.Get(0).(*model.Submission)
	return s, args.Error(1)
}

func (m *mockResultRepo) ListByPatient(ctx context.Context, patientID string, limit int) ([]*model.Submission, error) {
	args := m.Called(ctx, patientID, limit)
	s, _ := args.Get(0).([]*model.Submission)
	return s, args.Error(1)
}

type testServer struct {
	handler http.Handler
	auth    *service.AuthService
	survey  *service.SurveyService
	repo    *mockResultRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := cache.NewSQLiteDraftStore(filepath.Join(t.TempDir(), "drafts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	manager, err := session.NewManager(session.ManagerConfig{Store: store, SchemaVersion: 1, Debounce: 10 * time.Millisecond}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { manager.CloseAll(context.Background()) })

	repo := new(mockResultRepo)
	auth := service.NewAuthService("staff", "secret", "test-key")
	survey := service.NewSurveyService(manager, catalog.Detail(), repo, nil, nil, zerolog.Nop())
	hub := ws.NewHub(zerolog.Nop())
	t.Cleanup(hub.Close)
	survey.SetBroadcaster(hub)

	return &testServer{
		handler: NewRouter(&Container{
			AuthService:   auth,
			SurveyService: survey,
			GatingCatalog: catalog.Gating(),
			DetailCatalog: catalog.Detail(),
			WSHub:         hub,
			Logger:        zerolog.Nop(),
		}),
		auth:   auth,
		survey: survey,
		repo:   repo,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) patientToken(t *testing.T) (string, string) {
	t.Helper()
	rec := s.do(t, "POST", "/v1/auth/patient", "", map[string]string{"name": "홍길동", "birthDate": "1970-01-01"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.PatientAuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token, resp.PatientID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthAndCatalog(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = s.do(t, "GET", "/v1/catalog/gating", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["questions"], model.GatingQuestionCount)

	rec = s.do(t, "OPTIONS", "/v1/session", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPatientRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, "GET", "/v1/session", "", nil).Code)

	staff, err := s.auth.Login("staff", "secret")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, "GET", "/v1/session", staff.Token, nil).Code)

	token, _ := s.patientToken(t)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, "GET", "/v1/results/abc", token, nil).Code)
}

func TestScreeningFlow(t *testing.T) {
	s := newTestServer(t)
	token, patientID := s.patientToken(t)
	s.repo.On("Create", mock.Anything, mock.MatchedBy(func(sub *model.Submission) bool {
		return sub.PatientID == patientID
	})).Return(nil).Once()

	rec := s.do(t, "PUT", "/v1/session/gating", token, map[string]string{"q1": model.GatingYes, "q2": model.GatingNo})
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode(t, rec)
	assert.Equal(t, true, view["visibility"].(map[string]interface{})["finance"])

	rec = s.do(t, "PUT", "/v1/session/answers/q1", token, map[string]interface{}{"value": "lt40"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, "PUT", "/v1/session/answers/q1Household", token, map[string]interface{}{"value": "4인"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "4", decode(t, rec)["value"])

	rec = s.do(t, "POST", "/v1/session/answers/q2/toggle", token, map[string]interface{}{"value": "none", "checked": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"none"}, decode(t, rec)["value"])

	rec = s.do(t, "POST", "/v1/session/submit", token, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []interface{}{"q19"}, decode(t, rec)["missing"])

	rec = s.do(t, "POST", "/v1/session/validate", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"q19"}, decode(t, rec)["missing"])

	rec = s.do(t, "PUT", "/v1/session/answers/q19", token, map[string]interface{}{"value": "phone"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, "POST", "/v1/session/submit", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result model.RiskResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Overall.Count)
	assert.Equal(t, []string{"중위소득 75% 미만"}, result.PerCategory[model.CategoryFinance].Reasons)

	s.survey.WaitPersisted()
	s.repo.AssertExpectations(t)

	rec = s.do(t, "GET", "/v1/session", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["draft"].(map[string]interface{})["answers"])
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.patientToken(t)

	assert.Equal(t, http.StatusBadRequest, s.do(t, "PUT", "/v1/session/gating", token, map[string]string{"q42": model.GatingYes}).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, "PUT", "/v1/session/answers/q99", token, map[string]interface{}{"value": "x"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, "PUT", "/v1/session/answers/q3", token, map[string]interface{}{"value": 3}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, "POST", "/v1/auth/patient", "", map[string]string{"name": "", "birthDate": "x"}).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, "POST", "/v1/auth/login", "", map[string]string{"username": "staff", "password": "nope"}).Code)
}

func TestHiddenFieldsRejected(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.patientToken(t)

	rec := s.do(t, "PUT", "/v1/session/gating", token, map[string]string{"q10": model.GatingYes})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, "PUT", "/v1/session/answers/q15", token, map[string]interface{}{"value": "notWorking"})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusBadRequest, s.do(t, "PUT", "/v1/session/answers/q15_working_status", token, map[string]interface{}{"value": "on_leave"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, "PUT", "/v1/session/answers/q1", token, map[string]interface{}{"value": "lt40"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, "POST", "/v1/session/answers/q2/toggle", token, map[string]interface{}{"value": "rent", "checked": true}).Code)
	assert.Equal(t, http.StatusOK, s.do(t, "PUT", "/v1/session/answers/q15_notWorking_reasons", token, map[string]interface{}{"value": "retired"}).Code)

	rec = s.do(t, "GET", "/v1/session", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	answers := decode(t, rec)["draft"].(map[string]interface{})["answers"].(map[string]interface{})
	assert.Empty(t, answers["q15_working_status"])
	assert.Empty(t, answers["q1"])
	assert.Equal(t, "retired", answers["q15_notWorking_reasons"])
}

func TestStaffResults(t *testing.T) {
	s := newTestServer(t)
	staff, err := s.auth.Login("staff", "secret")
	require.NoError(t, err)

	s.repo.On("ListByPatient", mock.Anything, "p1", 5).Return([]*model.Submission{{ID: "s1", PatientID: "p1"}}, nil)

	rec := s.do(t, "GET", "/v1/results/p1?limit=5", staff.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["results"], 1)

	s.repo.On("GetLatestByPatient", mock.Anything, "p1").Return(&model.Submission{ID: "s1", PatientID: "p1"}, nil)
	s.repo.On("GetLatestByPatient", mock.Anything, "p2").Return(nil, nil)

	rec = s.do(t, "GET", "/v1/results/p1/latest", staff.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	latest := decode(t, rec)
	assert.Equal(t, "s1", latest["submission"].(map[string]interface{})["id"])
	assert.NotContains(t, latest, "triageRank")
	assert.Equal(t, http.StatusNotFound, s.do(t, "GET", "/v1/results/p2/latest", staff.Token, nil).Code)

	rec = s.do(t, "GET", "/v1/triage", staff.Token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestResetSession(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.patientToken(t)

	require.Equal(t, http.StatusOK, s.do(t, "PUT", "/v1/session/answers/q19", token, map[string]interface{}{"value": "sms"}).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, "DELETE", "/v1/session", token, nil).Code)

	rec := s.do(t, "GET", "/v1/session", token, nil)
	assert.Empty(t, decode(t, rec)["draft"].(map[string]interface{})["answers"])
}
