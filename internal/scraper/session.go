package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JustJay7/highcourt-fetcher/internal/browser"
	"github.com/JustJay7/highcourt-fetcher/internal/metrics"
	"github.com/JustJay7/highcourt-fetcher/pkg/logger"
	"github.com/go-co-op/gocron/v2"
)

// Kind selects which wizard a session drives
type Kind string

const (
	KindCase      Kind = "case"
	KindCauseList Kind = "cause"
)

var (
	// ErrSessionBusy is returned when another request is using the session
	ErrSessionBusy = errors.New("session is busy with another request")
	// ErrTooManySessions is returned when the live session cap is reached
	ErrTooManySessions = errors.New("too many live browser sessions")
)

// Key identifies a session: one per caller and workflow kind
type Key struct {
	SessionID string
	Kind      Kind
}

// AdapterFactory opens a fresh browser context
type AdapterFactory func(ctx context.Context) (browser.Adapter, error)

// Session is one browser context bound to a single workflow
type Session struct {
	Key Key
	// Case is set for KindCase sessions
	Case *CaseStatusWorkflow
	// CauseList is set for KindCauseList sessions
	CauseList *CauseListWorkflow

	adapter  browser.Adapter
	busy     sync.Mutex
	lastUsed time.Time
}

// ManagerOptions configures a Manager
type ManagerOptions struct {
	MaxSessions  int
	IdleTimeout  time.Duration
	ReapInterval time.Duration
	Workflow     WorkflowOptions
}

// Manager owns the live browser sessions. A session is created on first use
// of its key, used by one request at a time and closed when idle too long.
type Manager struct {
	mu       sync.Mutex
	sessions map[Key]*Session

	factory   AdapterFactory
	parser    *Parser
	opts      ManagerOptions
	logger    *logger.Logger
	scheduler gocron.Scheduler
	started   bool
	now       func() time.Time
}

// NewManager creates a session manager. Call Start to run the idle reaper.
func NewManager(factory AdapterFactory, parser *Parser, opts ManagerOptions, logger *logger.Logger) (*Manager, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Manager{
		sessions:  make(map[Key]*Session),
		factory:   factory,
		parser:    parser,
		opts:      opts,
		logger:    logger,
		scheduler: scheduler,
		now:       time.Now,
	}, nil
}

// Start schedules the idle reaper
func (m *Manager) Start() error {
	if m.opts.IdleTimeout <= 0 || m.opts.ReapInterval <= 0 {
		m.logger.Info("Session reaper disabled")
		return nil
	}

	_, err := m.scheduler.NewJob(
		gocron.DurationJob(m.opts.ReapInterval),
		gocron.NewTask(func() {
			if n := m.ReapIdle(m.now()); n > 0 {
				m.logger.Info("Reaped idle sessions", "count", n)
			}
		}),
		gocron.WithName("session-reaper"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule session reaper: %w", err)
	}

	m.scheduler.Start()
	m.started = true
	return nil
}

// Acquire returns the session for (sessionID, kind), creating it on first
// use, and locks it for the caller. The returned release must be called when
// the request is done.
func (m *Manager) Acquire(ctx context.Context, sessionID string, kind Kind) (*Session, func(), error) {
	if kind != KindCase && kind != KindCauseList {
		return nil, nil, fmt.Errorf("unknown workflow kind %q", kind)
	}
	key := Key{SessionID: sessionID, Kind: kind}

	m.mu.Lock()
	s, ok := m.sessions[key]
	if ok {
		if !s.busy.TryLock() {
			m.mu.Unlock()
			return nil, nil, ErrSessionBusy
		}
		s.lastUsed = m.now()
		m.mu.Unlock()
		return s, m.releaser(s), nil
	}

	if m.opts.MaxSessions > 0 && len(m.sessions) >= m.opts.MaxSessions {
		m.mu.Unlock()
		return nil, nil, ErrTooManySessions
	}

	// reserve the key so concurrent callers see a busy session while the
	// browser context is created
	s = &Session{Key: key, lastUsed: m.now()}
	s.busy.Lock()
	m.sessions[key] = s
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	if err := m.open(ctx, s); err != nil {
		m.mu.Lock()
		if m.sessions[key] == s {
			delete(m.sessions, key)
		}
		metrics.ActiveSessions.Set(float64(len(m.sessions)))
		m.mu.Unlock()
		return nil, nil, err
	}

	m.logger.Info("Opened browser session", "session", sessionID, "kind", string(kind))
	return s, m.releaser(s), nil
}

func (m *Manager) open(ctx context.Context, s *Session) error {
	adapter, err := m.factory(ctx)
	if err != nil {
		return fmt.Errorf("failed to open browser session: %w", err)
	}

	m.mu.Lock()
	if m.sessions[s.Key] != s {
		m.mu.Unlock()
		adapter.Close()
		return errors.New("session manager is shutting down")
	}
	s.adapter = adapter
	m.mu.Unlock()

	log := m.logger.With("session", s.Key.SessionID)
	if s.Key.Kind == KindCase {
		s.Case = NewCaseStatusWorkflow(adapter, m.parser, m.opts.Workflow, log)
	} else {
		s.CauseList = NewCauseListWorkflow(adapter, m.parser, m.opts.Workflow, log)
	}
	return nil
}

func (m *Manager) releaser(s *Session) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			s.lastUsed = m.now()
			m.mu.Unlock()
			s.busy.Unlock()
		})
	}
}

// ReapIdle closes every session unused since now minus the idle timeout.
// Sessions in use are skipped.
func (m *Manager) ReapIdle(now time.Time) int {
	m.mu.Lock()
	var idle []*Session
	for key, s := range m.sessions {
		if now.Sub(s.lastUsed) < m.opts.IdleTimeout {
			continue
		}
		if !s.busy.TryLock() {
			continue
		}
		delete(m.sessions, key)
		idle = append(idle, s)
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	for _, s := range idle {
		m.closeSession(s)
		metrics.SessionsEvicted.Inc()
	}
	return len(idle)
}

// Close releases the session for key. It fails with ErrSessionBusy while a
// request is using it.
func (m *Manager) Close(key Key) error {
	m.mu.Lock()
	s, ok := m.sessions[key]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	if !s.busy.TryLock() {
		m.mu.Unlock()
		return ErrSessionBusy
	}
	delete(m.sessions, key)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	m.closeSession(s)
	return nil
}

// Len reports the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown stops the reaper and closes every session, in use or not
func (m *Manager) Shutdown() error {
	var err error
	if m.started {
		err = m.scheduler.Shutdown()
	}

	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for key, s := range m.sessions {
		delete(m.sessions, key)
		all = append(all, s)
	}
	metrics.ActiveSessions.Set(0)
	m.mu.Unlock()

	for _, s := range all {
		m.closeSession(s)
	}
	return err
}

func (m *Manager) closeSession(s *Session) {
	if s.adapter == nil {
		return
	}
	if err := s.adapter.Close(); err != nil {
		m.logger.Warn("Failed to close browser session", "session", s.Key.SessionID, "kind", string(s.Key.Kind), "error", err)
		return
	}
	m.logger.Info("Closed browser session", "session", s.Key.SessionID, "kind", string(s.Key.Kind))
}
