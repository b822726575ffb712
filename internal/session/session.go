// Package session holds the in-progress answers of one patient's screening
// and mirrors them into a durable DraftStore.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"socialrisk/internal/cache"
	"socialrisk/internal/catalog"
	"socialrisk/internal/model"
	"socialrisk/internal/screening"
)

// DefaultDebounce is the quiet period before a draft is written.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a Session.
type Options struct {
	Store         cache.DraftStore
	Key           string
	SchemaVersion int
	Catalog       *catalog.Catalog
	Debounce      time.Duration
	Logger        zerolog.Logger
}

// Session owns the answer set of one screening. All methods are safe for
// concurrent use. Storage failures never surface to mutators; the session
// switches to memory-only instead.
type Session struct {
	mu       sync.Mutex
	writeMu  sync.Mutex
	store    cache.DraftStore
	key      string
	version  int
	catalog  *catalog.Catalog
	origin   string
	debounce time.Duration
	logger   zerolog.Logger

	gating    model.GatingAnswerSet
	answers   model.AnswerSet
	updatedAt time.Time

	timer       *time.Timer
	dirty       bool
	degraded    bool
	closed      bool
	edited      bool
	failedAt    time.Time
	unsubscribe func()

	nextObserver int
	observers    map[int]func(model.Draft)
}

// Open loads the draft stored under opts.Key and subscribes to changes made
// by other sessions. A missing or unreadable draft starts an empty session.
func Open(ctx context.Context, opts Options) *Session {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.Detail()
	}
	origin := uuid.New().String()
	s := &Session{
		store:     opts.Store,
		key:       opts.Key,
		version:   opts.SchemaVersion,
		catalog:   opts.Catalog,
		origin:    origin,
		debounce:  opts.Debounce,
		logger:    opts.Logger.With().Str("component", "session").Str("key", opts.Key).Logger(),
		gating:    model.GatingAnswerSet{},
		answers:   model.AnswerSet{},
		observers: make(map[int]func(model.Draft)),
	}

	if s.store == nil {
		s.degraded = true
		return s
	}

	raw, ok, err := s.store.Get(ctx, s.key)
	switch {
	case err != nil:
		s.failOpen(err)
		return s
	case ok:
		if d, ok := s.decode(raw); ok {
			s.apply(d)
		}
	}

	unsubscribe, err := s.store.Subscribe(ctx, s.key, s.onChange)
	if err != nil {
		s.failOpen(err)
		return s
	}
	s.unsubscribe = unsubscribe
	return s
}

// Origin identifies this session's writes in the change feed.
func (s *Session) Origin() string {
	return s.origin
}

// Degraded reports whether the session has fallen back to memory-only.
func (s *Session) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// Snapshot returns a copy of the current draft.
func (s *Session) Snapshot() model.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() model.Draft {
	return model.Draft{
		SchemaVersion: s.version,
		Gating:        s.gating.Clone(),
		Answers:       s.answers.Clone(),
		UpdatedAt:     s.updatedAt,
	}
}

// Answer returns the current value of one field.
func (s *Session) Answer(id string) model.AnswerValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers.Get(id)
}

// SetAnswer overwrites one field. No validation is performed.
func (s *Session) SetAnswer(id string, value model.AnswerValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers.Set(id, value)
	s.touchLocked()
}

// SetAnswerWithCascadeReset overwrites a controlling answer. When the value
// changes, every dependent is reset to its empty value so answers from a
// previously selected branch cannot survive.
func (s *Session) SetAnswerWithCascadeReset(parentID string, value model.AnswerValue, dependents []model.Dependent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := !s.answers.Get(parentID).Equal(value)
	s.answers.Set(parentID, value)
	if changed {
		for _, d := range dependents {
			s.answers.Set(d.ID, d.Empty())
		}
	}
	s.touchLocked()
}

// ToggleMultiSelect checks or unchecks one option of a checkbox answer and
// returns the resulting selection. "none" is exclusive with every other option.
func (s *Session) ToggleMultiSelect(id, value string, checked bool) model.AnswerValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.answers.Get(id).Items()
	var next []string
	switch {
	case checked && value == model.OptionNone:
		next = []string{model.OptionNone}
	case checked:
		for _, item := range current {
			if item != model.OptionNone {
				next = append(next, item)
			}
		}
		next = append(next, value)
	default:
		for _, item := range current {
			if item != value {
				next = append(next, item)
			}
		}
	}

	v := model.List(next...)
	s.answers.Set(id, v)
	s.touchLocked()
	return v
}

// SetGating replaces the gating answers. Answers of categories the new gating
// hides are cleared.
func (s *Session) SetGating(gating model.GatingAnswerSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gating = gating.Clone()

	show := screening.ResolveVisibility(s.gating)
	for _, c := range model.Categories {
		if show[c] {
			continue
		}
		for _, q := range s.catalog.ForCategory(c) {
			for _, id := range s.catalog.FieldsOf(q.ID) {
				delete(s.answers, id)
			}
		}
	}
	s.touchLocked()
}

// Reset clears the session and removes its durable draft.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	s.gating = model.GatingAnswerSet{}
	s.answers = model.AnswerSet{}
	s.updatedAt = time.Now().UTC()
	s.dirty = false
	s.edited = true
	s.stopTimerLocked()
	degraded := s.degraded
	s.mu.Unlock()

	if degraded {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.store.Remove(ctx, s.key, s.origin); err != nil {
		s.mu.Lock()
		s.degrade(err)
		s.mu.Unlock()
	}
}

// OnExternalChange registers fn to be called with the new draft whenever
// another session replaces this one's state. The returned func unregisters it.
func (s *Session) OnExternalChange(fn func(model.Draft)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Flush writes any pending change immediately.
func (s *Session) Flush(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.stopTimerLocked()
	if !s.dirty || s.degraded {
		s.mu.Unlock()
		return
	}
	s.dirty = false
	data, err := json.Marshal(s.snapshotLocked())
	s.mu.Unlock()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode draft")
		return
	}

	if err := s.store.Set(ctx, s.key, string(data), s.origin); err != nil {
		s.mu.Lock()
		s.degrade(err)
		s.mu.Unlock()
	}
}

// Close flushes pending changes and stops listening for external ones.
func (s *Session) Close(ctx context.Context) {
	s.Flush(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopTimerLocked()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *Session) touchLocked() {
	s.updatedAt = time.Now().UTC()
	s.edited = true
	if s.degraded || s.closed {
		return
	}
	s.dirty = true
	s.stopTimerLocked()
	s.timer = time.AfterFunc(s.debounce, func() {
		s.Flush(context.Background())
	})
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// failOpen degrades a session whose initial load or subscribe failed.
func (s *Session) failOpen(err error) {
	s.failedAt = time.Now()
	s.degrade(err)
}

// openFailure returns when the initial load or subscribe failed, if it did.
func (s *Session) openFailure() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failedAt, !s.failedAt.IsZero()
}

// edits returns the draft if anything was changed locally since Open.
func (s *Session) edits() (model.Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(), s.edited
}

// adopt overlays the answers of d onto the current state as a local change.
func (s *Session) adopt(d model.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range d.Gating {
		if v != "" {
			s.gating[k] = v
		}
	}
	for k, v := range d.Answers {
		s.answers.Set(k, v)
	}
	s.touchLocked()
}

// degrade must be called with mu held, except from Open.
func (s *Session) degrade(err error) {
	if s.degraded {
		return
	}
	s.degraded = true
	s.dirty = false
	s.stopTimerLocked()
	s.logger.Warn().Err(err).Msg("draft storage unavailable, continuing in memory")
}

func (s *Session) decode(raw string) (model.Draft, bool) {
	var d model.Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		s.logger.Warn().Err(err).Msg("discarding unreadable draft")
		return model.Draft{}, false
	}
	if d.SchemaVersion != s.version {
		s.logger.Info().Int("found", d.SchemaVersion).Int("want", s.version).Msg("discarding draft with different schema version")
		return model.Draft{}, false
	}
	return d, true
}

func (s *Session) apply(d model.Draft) {
	s.gating = model.GatingAnswerSet{}
	for k, v := range d.Gating {
		if v != "" {
			s.gating[k] = v
		}
	}
	s.answers = model.AnswerSet{}
	for k, v := range d.Answers {
		s.answers.Set(k, v)
	}
	s.updatedAt = d.UpdatedAt
}

func (s *Session) onChange(change cache.DraftChange) {
	if change.Origin == s.origin {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if change.Removed {
		s.apply(model.Draft{UpdatedAt: time.Now().UTC()})
	} else {
		d, ok := s.decode(change.Value)
		if !ok {
			s.mu.Unlock()
			return
		}
		s.apply(d)
	}
	// The remote write wins over anything still pending locally.
	s.dirty = false
	s.stopTimerLocked()

	snapshot := s.snapshotLocked()
	observers := make([]func(model.Draft), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
}
