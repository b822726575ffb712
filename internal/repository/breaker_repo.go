package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"socialrisk/internal/model"
)

// BreakerSettings configures the circuit breaker around remote persistence.
type BreakerSettings struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
	MaxRequests      uint32
	Interval         time.Duration
}

type breakerResultRepo struct {
	inner   ResultRepo
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerResultRepo wraps inner so that calls fail fast with
// gobreaker.ErrOpenState while MongoDB keeps failing.
func NewBreakerResultRepo(inner ResultRepo, settings BreakerSettings, logger zerolog.Logger) ResultRepo {
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	if settings.OpenTimeout == 0 {
		settings.OpenTimeout = 30 * time.Second
	}
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 1
	}

	log := logger.With().Str("component", "result_repo").Logger()
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ScreeningResults",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().
				Str("circuit_breaker", name).
				Str("from_state", from.String()).
				Str("to_state", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	return &breakerResultRepo{inner: inner, breaker: cb}
}

func (r *breakerResultRepo) Create(ctx context.Context, submission *model.Submission) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.inner.Create(ctx, submission)
	})
	return err
}

func (r *breakerResultRepo) GetLatestByPatient(ctx context.Context, patientID string) (*model.Submission, error) {
	out, err := r.breaker.Execute(func() (interface{}, error) {
		return r.inner.GetLatestByPatient(ctx, patientID)
	})
	if err != nil {
		return nil, err
	}
	submission, _ := out.(*model.Submission)
	return submission, nil
}

func (r *breakerResultRepo) ListByPatient(ctx context.Context, patientID string, limit int) ([]*model.Submission, error) {
	out, err := r.breaker.Execute(func() (interface{}, error) {
		return r.inner.ListByPatient(ctx, patientID, limit)
	})
	if err != nil {
		return nil, err
	}
	submissions, _ := out.([]*model.Submission)
	return submissions, nil
}
