// Package session owns the per-session workspaces: notification engine,
// verification desk, product draft and the live feed subscription.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wingx/dashboard/internal/logging"
)

const DefaultIdleTimeout = 15 * time.Minute

type entry struct {
	w    *Workspace
	seen time.Time
}

// Manager keeps one workspace per session id. Workspaces without an open
// event stream that were not attached for the idle timeout are reclaimed by
// Sweep. Ids passed to End are refused for the same period, which outlives
// every access token issued for them.
type Manager struct {
	feed Feed
	log  *slog.Logger
	idle time.Duration
	now  func() time.Time

	mu         sync.Mutex
	workspaces map[string]*entry
	ended      map[string]time.Time
}

func NewManager(feed Feed, idle time.Duration, log *slog.Logger) *Manager {
	if log == nil {
		log = logging.Discard()
	}
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Manager{
		feed:       feed,
		log:        log.With("component", "session"),
		idle:       idle,
		now:        time.Now,
		workspaces: make(map[string]*entry),
		ended:      make(map[string]time.Time),
	}
}

// Attach returns the workspace for id.SessionID, creating it on first sight,
// and applies role changes. It returns ErrEnded for a session that was
// ended.
func (m *Manager) Attach(id Identity) (*Workspace, error) {
	m.mu.Lock()
	now := m.now()
	if until, ok := m.ended[id.SessionID]; ok {
		if now.Before(until) {
			m.mu.Unlock()
			return nil, ErrEnded
		}
		delete(m.ended, id.SessionID)
	}
	e, ok := m.workspaces[id.SessionID]
	if !ok {
		e = &entry{w: newWorkspace(id, m.feed, m.log)}
		m.workspaces[id.SessionID] = e
		m.log.Info("session_started", "session_id", id.SessionID, "role", id.Role)
	}
	e.seen = now
	m.mu.Unlock()

	e.w.apply(id)
	return e.w, nil
}

func (m *Manager) Get(sessionID string) (*Workspace, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.workspaces[sessionID]
	if !ok {
		return nil, false
	}
	return e.w, true
}

// End tears the session down and refuses later attaches for it. Unknown ids
// are still refused.
func (m *Manager) End(sessionID string) {
	if sessionID == "" {
		return
	}
	m.mu.Lock()
	e, ok := m.workspaces[sessionID]
	delete(m.workspaces, sessionID)
	m.ended[sessionID] = m.now().Add(m.idle)
	m.mu.Unlock()

	if ok {
		e.w.end()
		m.log.Info("session_ended", "session_id", sessionID)
	}
}

// Sweep reclaims idle workspaces and forgets expired ended ids. It returns
// the number of workspaces reclaimed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	now := m.now()
	var idle []*Workspace
	for id, e := range m.workspaces {
		if e.w.Streams() == 0 && now.Sub(e.seen) >= m.idle {
			idle = append(idle, e.w)
			delete(m.workspaces, id)
		}
	}
	for id, until := range m.ended {
		if !now.Before(until) {
			delete(m.ended, id)
		}
	}
	m.mu.Unlock()

	for _, w := range idle {
		w.end()
		m.log.Info("session_reclaimed", "session_id", w.ID)
	}
	return len(idle)
}

// Run sweeps periodically until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	t := time.NewTicker(m.idle / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			m.Sweep()
		}
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workspaces)
}

// Close ends every session.
func (m *Manager) Close() {
	m.mu.Lock()
	ws := make([]*Workspace, 0, len(m.workspaces))
	for id, e := range m.workspaces {
		ws = append(ws, e.w)
		delete(m.workspaces, id)
	}
	m.mu.Unlock()

	for _, w := range ws {
		w.end()
	}
}
