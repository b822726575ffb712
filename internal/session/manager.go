package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"socialrisk/internal/cache"
	"socialrisk/internal/catalog"
	"socialrisk/internal/model"
)

const (
	defaultOpenTimeout   = 5 * time.Second
	defaultRetryInterval = 5 * time.Second
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Store         cache.DraftStore
	SchemaVersion int
	Debounce      time.Duration
	CacheSize     int
	Catalog       *catalog.Catalog
	// OpenTimeout bounds loading and subscribing a new session.
	OpenTimeout time.Duration
	// RetryInterval is how long a session whose open failed stays
	// memory-only before the manager tries the store again.
	RetryInterval time.Duration
}

// Manager keeps one live Session per patient. Least recently used sessions
// are flushed and closed when the cache is full.
type Manager struct {
	mu       sync.Mutex
	cfg      ManagerConfig
	sessions *lru.Cache[string, *Session]
	opening  singleflight.Group
	logger   zerolog.Logger
	onOpen   func(patientID string, s *Session)
	now      func() time.Time
}

// NewManager creates a session manager
func NewManager(cfg ManagerConfig, logger zerolog.Logger) (*Manager, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaultOpenTimeout
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	m := &Manager{
		cfg:    cfg,
		logger: logger.With().Str("component", "session_manager").Logger(),
		now:    time.Now,
	}
	sessions, err := lru.NewWithEvict[string, *Session](cfg.CacheSize, func(patientID string, s *Session) {
		if s.isClosed() {
			return
		}
		m.logger.Debug().Str("patientId", patientID).Msg("evicting session")
		go s.Close(context.Background())
	})
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	m.sessions = sessions
	return m, nil
}

// SetOpenHook registers fn to run for every newly opened session (late injection).
func (m *Manager) SetOpenHook(fn func(patientID string, s *Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOpen = fn
}

// Key returns the durable draft key of a patient.
func (m *Manager) Key(patientID string) string {
	return model.DraftKey(m.cfg.SchemaVersion, patientID)
}

// Get returns the live session of a patient, opening it if needed. Store I/O
// runs outside the manager lock and detached from ctx cancellation; concurrent
// calls for one patient share a single open.
func (m *Manager) Get(ctx context.Context, patientID string) *Session {
	if s, ok := m.cached(patientID); ok {
		return s
	}
	v, _, _ := m.opening.Do(patientID, func() (interface{}, error) {
		return m.open(ctx, patientID), nil
	})
	return v.(*Session)
}

// cached returns the patient's session unless it is due for a reopen.
func (m *Manager) cached(patientID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions.Get(patientID)
	if !ok {
		return nil, false
	}
	if failedAt, failed := s.openFailure(); failed && m.now().Sub(failedAt) >= m.cfg.RetryInterval {
		return s, false
	}
	return s, true
}

func (m *Manager) open(ctx context.Context, patientID string) *Session {
	prev, ok := m.cached(patientID)
	if ok {
		return prev
	}

	openCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.OpenTimeout)
	defer cancel()
	s := Open(openCtx, Options{
		Store:         m.cfg.Store,
		Key:           m.Key(patientID),
		SchemaVersion: m.cfg.SchemaVersion,
		Catalog:       m.cfg.Catalog,
		Debounce:      m.cfg.Debounce,
		Logger:        m.logger,
	})

	// Edits made while the previous session was memory-only are newer than
	// whatever the store holds.
	if prev != nil {
		if d, edited := prev.edits(); edited {
			s.adopt(d)
		}
		if _, failed := s.openFailure(); !failed {
			m.logger.Info().Str("patientId", patientID).Msg("draft storage recovered")
		}
	}

	m.mu.Lock()
	m.sessions.Add(patientID, s)
	hook := m.onOpen
	m.mu.Unlock()

	if prev != nil {
		prev.Close(context.Background())
	}
	if hook != nil {
		hook(patientID, s)
	}
	return s
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	return m.sessions.Len()
}

// CloseAll flushes and closes every live session.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, patientID := range m.sessions.Keys() {
		if s, ok := m.sessions.Peek(patientID); ok {
			s.Close(ctx)
		}
	}
	m.sessions.Purge()
}
