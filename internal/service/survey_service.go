package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"socialrisk/internal/cache"
	"socialrisk/internal/catalog"
	"socialrisk/internal/model"
	"socialrisk/internal/repository"
	"socialrisk/internal/screening"
	"socialrisk/internal/session"
)

var (
	ErrUnknownQuestion = errors.New("unknown question")
	ErrInvalidAnswer   = errors.New("invalid answer")
	ErrUnavailable     = errors.New("feature unavailable without redis")
)

const persistTimeout = 10 * time.Second

// SessionView is what a patient client needs to render the detail stage.
type SessionView struct {
	Draft      model.Draft             `json:"draft"`
	Visibility map[model.Category]bool `json:"visibility"`
	Questions  []model.Question        `json:"questions"`
	Degraded   bool                    `json:"degraded"`
}

// SurveyService drives screening sessions from answer entry to submission
type SurveyService struct {
	sessions *session.Manager
	detail   *catalog.Catalog
	results  repository.ResultRepo
	triage   cache.TriageCache
	stats    cache.StatsCache
	logger   zerolog.Logger
	now      func() time.Time

	mu          sync.RWMutex
	broadcaster Broadcaster
	persisting  sync.WaitGroup
}

// NewSurveyService creates a new survey service. triage and stats may be nil.
func NewSurveyService(
	sessions *session.Manager,
	detail *catalog.Catalog,
	results repository.ResultRepo,
	triage cache.TriageCache,
	stats cache.StatsCache,
	logger zerolog.Logger,
) *SurveyService {
	s := &SurveyService{
		sessions: sessions,
		detail:   detail,
		results:  results,
		triage:   triage,
		stats:    stats,
		logger:   logger.With().Str("component", "survey_service").Logger(),
		now:      time.Now,
	}
	sessions.SetOpenHook(s.watch)
	return s
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *SurveyService) SetBroadcaster(b Broadcaster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcaster = b
}

func (s *SurveyService) broadcast(patientID, msgType string, payload interface{}) {
	s.mu.RLock()
	b := s.broadcaster
	s.mu.RUnlock()
	if b != nil {
		b.SendToPatient(patientID, msgType, payload)
	}
}

// watch forwards drafts written by other sessions to the patient's connections.
func (s *SurveyService) watch(patientID string, sess *session.Session) {
	sess.OnExternalChange(func(d model.Draft) {
		s.broadcast(patientID, MsgDraftSynced, d)
	})
}

// View returns the patient's draft with the questions it makes visible
func (s *SurveyService) View(ctx context.Context, patientID string) *SessionView {
	sess := s.sessions.Get(ctx, patientID)
	return s.view(sess)
}

func (s *SurveyService) view(sess *session.Session) *SessionView {
	draft := sess.Snapshot()
	show := screening.ResolveVisibility(draft.Gating)
	return &SessionView{
		Draft:      draft,
		Visibility: show,
		Questions:  screening.VisibleQuestions(s.detail, show),
		Degraded:   sess.Degraded(),
	}
}

// SetGating stores the gating answers handed over by the upstream form
func (s *SurveyService) SetGating(ctx context.Context, patientID string, raw map[string]string) (*SessionView, error) {
	gating, err := model.ParseGating(raw)
	if err != nil {
		return nil, err
	}
	sess := s.sessions.Get(ctx, patientID)
	sess.SetGating(gating)
	return s.view(sess), nil
}

// SetAnswer stores one field. Controlling questions reset the fields they
// own; numeric fields are reduced to digits and sliders clamped to range.
func (s *SurveyService) SetAnswer(ctx context.Context, patientID, id string, value model.AnswerValue) (model.AnswerValue, error) {
	field, ok := s.detail.Field(id)
	if !ok {
		return model.Unset(), fmt.Errorf("%w: %s", ErrUnknownQuestion, id)
	}
	value, err := normalize(field, value)
	if err != nil {
		return model.Unset(), err
	}

	sess := s.sessions.Get(ctx, patientID)
	if !value.IsEmpty() && !s.shown(sess.Snapshot(), field) {
		return model.Unset(), fmt.Errorf("%w: %s is not shown", ErrInvalidAnswer, id)
	}
	if deps := s.detail.Dependents(id); len(deps) > 0 {
		sess.SetAnswerWithCascadeReset(id, value, deps)
		return value, nil
	}

	sess.SetAnswer(id, value)
	if field.OtherKey != "" && !selectsOther(value) {
		sess.SetAnswer(field.OtherKey, model.Text(""))
	}
	return value, nil
}

// Toggle checks or unchecks one option of a checkbox field
func (s *SurveyService) Toggle(ctx context.Context, patientID, id, option string, checked bool) (model.AnswerValue, error) {
	field, ok := s.detail.Field(id)
	if !ok {
		return model.Unset(), fmt.Errorf("%w: %s", ErrUnknownQuestion, id)
	}
	if !field.Multi() {
		return model.Unset(), fmt.Errorf("%w: %s is not a multi-select", ErrInvalidAnswer, id)
	}
	if !field.Allows(option) {
		return model.Unset(), fmt.Errorf("%w: %q is not an option of %s", ErrInvalidAnswer, option, id)
	}

	sess := s.sessions.Get(ctx, patientID)
	if checked && !s.shown(sess.Snapshot(), field) {
		return model.Unset(), fmt.Errorf("%w: %s is not shown", ErrInvalidAnswer, id)
	}
	value := sess.ToggleMultiSelect(id, option, checked)
	if field.OtherKey != "" && !selectsOther(value) {
		sess.SetAnswer(field.OtherKey, model.Text(""))
	}
	return value, nil
}

// shown reports whether field is on screen for draft: its category is opened
// by the gating answers, and a nested field's branch, trigger or "other"
// option is currently selected.
func (s *SurveyService) shown(draft model.Draft, field catalog.Field) bool {
	q, ok := s.detail.ByID(field.Parent)
	if !ok {
		return false
	}
	if q.Category != "" && !screening.ResolveVisibility(draft.Gating)[q.Category] {
		return false
	}
	if field.ID == q.ID {
		return true
	}

	parent := draft.Answers.Get(q.ID)
	switch shape := q.Shape.(type) {
	case model.RadioWithSub:
		return subShown(shape.SelectedSub(parent.Str()), field.ID, draft.Answers)
	case model.YesNoDetails:
		if parent.Str() != shape.TriggerValue() {
			return false
		}
		return subShown(shape.Detail, field.ID, draft.Answers)
	case model.Radio, model.Checkbox:
		return selectsOther(parent)
	}
	return true
}

func subShown(sub *model.SubQuestion, id string, answers model.AnswerSet) bool {
	switch {
	case sub == nil:
		return false
	case id == sub.ID:
		return true
	case id == sub.OtherKey:
		return selectsOther(answers.Get(sub.ID))
	}
	return false
}

// visibleAnswers drops every answer whose field is not shown.
func (s *SurveyService) visibleAnswers(draft model.Draft) model.AnswerSet {
	out := model.AnswerSet{}
	for id, v := range draft.Answers {
		if field, ok := s.detail.Field(id); ok && s.shown(draft, field) {
			out.Set(id, v)
		}
	}
	return out
}

func selectsOther(v model.AnswerValue) bool {
	return v.Str() == model.OptionOther || v.Contains(model.OptionOther)
}

func normalize(field catalog.Field, value model.AnswerValue) (model.AnswerValue, error) {
	switch value.Kind() {
	case model.KindUnset:
		return value, nil
	case model.KindList:
		if !field.Multi() {
			return value, fmt.Errorf("%w: %s expects a single value", ErrInvalidAnswer, field.ID)
		}
		for _, item := range value.Items() {
			if !field.Allows(item) {
				return value, fmt.Errorf("%w: %q is not an option of %s", ErrInvalidAnswer, item, field.ID)
			}
		}
		if value.Contains(model.OptionNone) {
			return model.List(model.OptionNone), nil
		}
		return value, nil
	}

	if field.Multi() {
		return value, fmt.Errorf("%w: %s expects a list of options", ErrInvalidAnswer, field.ID)
	}
	text := value.Str()
	if field.Numeric {
		text = StripNonDigits(text)
		if field.Slider != nil && text != "" {
			text = clamp(text, field.Slider.Min, field.Slider.Max)
		}
		return model.Text(text), nil
	}
	if text != "" && !field.Allows(text) {
		return value, fmt.Errorf("%w: %q is not an option of %s", ErrInvalidAnswer, text, field.ID)
	}
	return value, nil
}

func clamp(digits string, min, max int) string {
	n, err := strconv.Atoi(digits)
	if err != nil || n > max {
		// only overflow fails here
		return strconv.Itoa(max)
	}
	if n < min {
		n = min
	}
	return strconv.Itoa(n)
}

// Validate returns the missing required fields of the patient's draft
func (s *SurveyService) Validate(ctx context.Context, patientID string) []string {
	view := s.View(ctx, patientID)
	return screening.Validate(view.Questions, view.Draft.Answers)
}

// Submit validates the draft, derives risk and hands the submission to
// persistence without waiting for it. The draft is cleared on success.
func (s *SurveyService) Submit(ctx context.Context, patientID string) (*model.RiskResult, error) {
	sess := s.sessions.Get(ctx, patientID)
	view := s.view(sess)
	if err := screening.Check(view.Questions, view.Draft.Answers); err != nil {
		return nil, err
	}

	answers := s.visibleAnswers(view.Draft)
	result := screening.DeriveRisk(view.Draft.Gating, answers)
	submission := model.NewSubmission(uuid.New().String(), patientID, view.Draft.Gating, answers, result, s.now().UTC())

	s.persist(submission, result)

	sess.Reset(ctx)
	s.broadcast(patientID, MsgSubmitted, result)
	s.logger.Info().
		Str("submissionId", submission.ID).
		Int("count", result.Overall.Count).
		Bool("highRisk", result.Overall.IsHighRisk).
		Int("riskCategories", len(result.RiskCategories)).
		Msg("screening submitted")
	return &result, nil
}

func (s *SurveyService) persist(submission *model.Submission, result model.RiskResult) {
	s.persisting.Add(1)
	go func() {
		defer s.persisting.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().Interface("panic", r).Str("submissionId", submission.ID).Msg("recovered from panic while persisting submission")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		log := s.logger.With().Str("submissionId", submission.ID).Logger()
		if err := s.results.Create(ctx, submission); err != nil {
			log.Error().Err(err).Msg("failed to persist submission")
		}
		if s.triage != nil {
			if err := s.rank(ctx, submission.PatientID, result); err != nil {
				log.Warn().Err(err).Msg("failed to update triage ranking")
			}
		}
		if s.stats != nil {
			if err := s.stats.Increment(ctx, result); err != nil {
				log.Warn().Err(err).Msg("failed to update screening stats")
			}
		}
	}()
}

// rank keeps only patients with something to follow up in the triage set.
func (s *SurveyService) rank(ctx context.Context, patientID string, result model.RiskResult) error {
	if len(result.RiskCategories) == 0 && !result.Overall.IsHighRisk {
		return s.triage.Remove(ctx, patientID)
	}
	return s.triage.Record(ctx, patientID, result)
}

// WaitPersisted blocks until in-flight submissions have been handed to storage.
func (s *SurveyService) WaitPersisted() {
	s.persisting.Wait()
}

// Reset discards the patient's draft
func (s *SurveyService) Reset(ctx context.Context, patientID string) {
	s.sessions.Get(ctx, patientID).Reset(ctx)
	s.broadcast(patientID, MsgReset, nil)
}

// Results lists a patient's persisted submissions, newest first
func (s *SurveyService) Results(ctx context.Context, patientID string, limit int) ([]*model.Submission, error) {
	return s.results.ListByPatient(ctx, patientID, limit)
}

// LatestResult returns a patient's most recent submission, or nil
func (s *SurveyService) LatestResult(ctx context.Context, patientID string) (*model.Submission, error) {
	return s.results.GetLatestByPatient(ctx, patientID)
}

// Triage returns the highest-risk patients
func (s *SurveyService) Triage(ctx context.Context, limit int) ([]cache.TriageEntry, error) {
	if s.triage == nil {
		return nil, ErrUnavailable
	}
	return s.triage.GetTop(ctx, limit)
}

// TriageRank returns the patient's 1-based position in the triage set, or -1
// when the patient is not ranked.
func (s *SurveyService) TriageRank(ctx context.Context, patientID string) (int64, error) {
	if s.triage == nil {
		return 0, ErrUnavailable
	}
	return s.triage.GetRank(ctx, patientID)
}

// Stats returns running totals of screening outcomes
func (s *SurveyService) Stats(ctx context.Context) (*cache.ScreeningStats, error) {
	if s.stats == nil {
		return nil, ErrUnavailable
	}
	return s.stats.Get(ctx)
}
