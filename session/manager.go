package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"startpage/menu"
)

var ErrNotFound = errors.New("session not found")

// Manager tracks the open start pages.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	grid     Grid
	icons    menu.Refresher
}

// NewManager returns a Manager whose sessions reorder grid and refresh icons
// through icons.
func NewManager(grid Grid, icons menu.Refresher) *Manager {
	return &Manager{sessions: make(map[string]*Session), grid: grid, icons: icons}
}

func (m *Manager) Create() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := newSession(uuid.New().String(), m.grid, m.icons)
	m.sessions[s.ID] = s
	return s
}

func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	return list
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close removes the session; its websocket, if any, is told to disconnect.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.close()
	delete(m.sessions, id)
	return nil
}

// Broadcast pushes ev to every connected session.
func (m *Manager) Broadcast(ev Event) {
	for _, s := range m.List() {
		s.Push(ev)
	}
}

// Reap closes sessions that have had no client for longer than ttl.
func (m *Manager) Reap(ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-ttl)
	n := 0
	for id, s := range m.sessions {
		last, connected := s.idleSince()
		if connected || last.After(cutoff) {
			continue
		}
		s.close()
		delete(m.sessions, id)
		n++
	}
	return n
}

// RunReaper calls Reap every interval until ctx is done.
func (m *Manager) RunReaper(ctx context.Context, interval, ttl time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Reap(ttl)
		}
	}
}
