package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"socialrisk/internal/catalog"
	"socialrisk/internal/model"
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

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := new(mockResultRepo)
	inner.On("Create", mock.Anything, mock.Anything).Return(errors.New("no reachable servers"))

	repo := NewBreakerResultRepo(inner, BreakerSettings{FailureThreshold: 2, OpenTimeout: time.Minute}, zerolog.Nop())
	sub := &model.Submission{ID: "s1"}

	assert.Error(t, repo.Create(context.Background(), sub))
	assert.Error(t, repo.Create(context.Background(), sub))
	err := repo.Create(context.Background(), sub)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	inner.AssertNumberOfCalls(t, "Create", 2)
}

func TestBreakerPassesResultsThrough(t *testing.T) {
	inner := new(mockResultRepo)
	want := &model.Submission{ID: "s1", PatientID: "p1"}
	inner.On("GetLatestByPatient", mock.Anything, "p1").Return(want, nil)
	inner.On("GetLatestByPatient", mock.Anything, "p2").Return(nil, nil)
	inner.On("ListByPatient", mock.Anything, "p1", 10).Return([]*model.Submission{want}, nil)

	repo := NewBreakerResultRepo(inner, BreakerSettings{}, zerolog.Nop())

	got, err := repo.GetLatestByPatient(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = repo.GetLatestByPatient(context.Background(), "p2")
	require.NoError(t, err)
	assert.Nil(t, got)

	list, err := repo.ListByPatient(context.Background(), "p1", 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestBuildCatalogDocument(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	doc, err := BuildCatalogDocument(3, catalog.Gating().Questions(), catalog.Detail().Questions(), now)
	require.NoError(t, err)

	assert.Equal(t, "sdoh-v3", doc.ID)
	assert.Len(t, doc.Gating, model.GatingQuestionCount)
	assert.Len(t, doc.Detail, catalog.Detail().Len())
	assert.Equal(t, "q1", doc.Detail[0]["id"])
	assert.Equal(t, string(model.TypeIncomeCombo), doc.Detail[0]["type"])
	assert.Equal(t, now, doc.PublishedAt)
}
