// Package service keeps the live intake sessions of the process.
package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"solarintake/internal/intake/orchestrator"
	"solarintake/internal/platform/metrics"
	dErrors "solarintake/pkg/domain-errors"
	"solarintake/pkg/requestcontext"
)

const DefaultIdleTTL = 30 * time.Minute

// Factory builds a session with its resolvers already wired.
type Factory func(id uuid.UUID) *orchestrator.Session

// Manager owns sessions keyed by ID. Sessions idle longer than the TTL are
// closed by the cleanup loop.
type Manager struct {
	factory Factory
	idleTTL time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
	onClose func(uuid.UUID)

	mu       sync.RWMutex
	sessions map[uuid.UUID]*orchestrator.Session
}

type Option func(*Manager)

func WithIdleTTL(d time.Duration) Option { return func(m *Manager) { m.idleTTL = d } }

func WithMetrics(mt *metrics.Metrics) Option { return func(m *Manager) { m.metrics = mt } }

func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.logger = l } }

// WithOnClose registers fn to run after a session is closed by the manager.
func WithOnClose(fn func(uuid.UUID)) Option { return func(m *Manager) { m.onClose = fn } }

func NewManager(factory Factory, opts ...Option) *Manager {
	m := &Manager{
		factory:  factory,
		idleTTL:  DefaultIdleTTL,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		sessions: make(map[uuid.UUID]*orchestrator.Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Create(ctx context.Context) *orchestrator.Session {
	s := m.factory(uuid.New())

	m.mu.Lock()
	m.sessions[s.ID()] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetActiveSessions(n)
	m.logger.InfoContext(ctx, "intake session created", "session_id", s.ID().String())
	return s
}

func (m *Manager) Get(_ context.Context, id uuid.UUID) (*orchestrator.Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "session not found")
	}
	return s, nil
}

// Delete closes the session and forgets it.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "session not found")
	}

	m.release(s)
	m.metrics.SetActiveSessions(n)
	m.logger.InfoContext(ctx, "intake session closed", "session_id", id.String())
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// StartCleanup closes idle sessions every interval until ctx is cancelled.
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.RemoveIdleAt(ctx, time.Now()); n > 0 {
				m.logger.InfoContext(ctx, "closed idle intake sessions", "count", n)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RemoveIdleAt closes every session whose last activity is older than the
// idle TTL as of now and returns how many were closed.
func (m *Manager) RemoveIdleAt(ctx context.Context, now time.Time) int {
	cutoff := now.Add(-m.idleTTL)

	m.mu.Lock()
	var idle []*orchestrator.Session
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, s := range idle {
		m.release(s)
		m.logger.DebugContext(requestcontext.WithSessionID(ctx, s.ID()), "idle session expired", "session_id", s.ID().String())
	}
	if len(idle) > 0 {
		m.metrics.SetActiveSessions(n)
	}
	return len(idle)
}

// Close closes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[uuid.UUID]*orchestrator.Session)
	m.mu.Unlock()

	for _, s := range sessions {
		m.release(s)
	}
	m.metrics.SetActiveSessions(0)
}

func (m *Manager) release(s *orchestrator.Session) {
	s.Close()
	if m.onClose != nil {
		m.onClose(s.ID())
	}
}
