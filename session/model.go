package session

import (
	"sync"
	"time"

	"startpage/menu"
	"startpage/reorder"
	"startpage/shortcut"
)

// Event is a message pushed to the browser.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Event types.
const (
	EventState   = "state"
	EventIcon    = "icon"
	EventLift    = "lift"
	EventPreview = "preview"
	EventDrop    = "drop"
	EventMenu    = "menu"
	EventEffect  = "effect"
	EventError   = "error"
)

// Grid is the store surface a session mutates.
type Grid interface {
	Shortcut(id string) (shortcut.Shortcut, bool)
	// Move commits a finished drag against the current list atomically.
	Move(d reorder.Drop) bool
}

// Session is the transient UI state of one open start page: its drag
// gesture, its context menu and the channel its websocket drains.
type Session struct {
	ID        string
	CreatedAt time.Time

	grid  Grid
	icons menu.Refresher

	uiMu sync.Mutex
	drag *reorder.Engine
	menu *menu.Menu

	outMu      sync.Mutex
	outChan    chan Event
	kickChan   chan struct{}
	lastActive time.Time
	connected  bool

	done     chan struct{}
	doneOnce sync.Once
}

func newSession(id string, grid Grid, icons menu.Refresher) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		CreatedAt:  now,
		lastActive: now,
		grid:       grid,
		icons:      icons,
		drag:       reorder.NewEngine(),
		menu:       menu.New(),
		done:       make(chan struct{}),
	}
}

// Info is a snapshot of a session for listing.
type Info struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
	Connected  bool      `json:"connected"`
}

// Info returns the session's current listing data.
func (s *Session) Info() Info {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	return Info{ID: s.ID, CreatedAt: s.CreatedAt, LastActive: s.lastActive, Connected: s.connected}
}

// SetClient registers a channel to receive pushed events. If a previous
// client is connected it is kicked: its kick channel is closed so ws.go can
// detect the displacement and close that WebSocket connection. Returns a kick
// channel that will be closed if this client is itself later displaced.
func (s *Session) SetClient(ch chan Event) <-chan struct{} {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.kickChan != nil {
		close(s.kickChan)
	}
	kick := make(chan struct{})
	s.kickChan = kick
	s.outChan = ch
	s.connected = true
	return kick
}

// ClearClient is called when a connection ends. It only updates session state
// if ch is still the current owner (guards against a displaced connection
// clearing a newer one). It always closes ch so the pump goroutine exits.
// Losing the owning connection cancels any drag in progress.
func (s *Session) ClearClient(ch chan Event) {
	s.outMu.Lock()
	owned := s.outChan == ch
	if owned {
		s.outChan = nil
		s.connected = false
		s.kickChan = nil
		s.lastActive = time.Now()
	}
	close(ch)
	s.outMu.Unlock()

	if owned {
		s.uiMu.Lock()
		s.drag.Cancel()
		s.menu.Dismiss()
		s.uiMu.Unlock()
	}
}

// Push delivers ev to the connected client, dropping it when there is none
// or its buffer is full.
func (s *Session) Push(ev Event) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.outChan == nil {
		return
	}
	select {
	case s.outChan <- ev:
	default:
	}
}

// Done returns a channel that is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) close() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Session) touch() {
	s.outMu.Lock()
	s.lastActive = time.Now()
	s.outMu.Unlock()
}

func (s *Session) idleSince() (time.Time, bool) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	return s.lastActive, s.connected
}
