package session

import (
	"startpage/menu"
	"startpage/reorder"
	"startpage/shortcut"
)

// LiftView is pushed when a tile is lifted or the preview changes.
type LiftView struct {
	ActiveID string   `json:"activeId"`
	OverID   string   `json:"overId,omitempty"`
	Order    []string `json:"order"`
}

// Press records a pointer-down on a tile.
func (s *Session) Press(id string, p reorder.Point, layout []reorder.Item) error {
	s.touch()
	s.uiMu.Lock()
	defer s.uiMu.Unlock()
	return s.drag.Press(id, p, layout)
}

// Move feeds a pointer position and pushes lift/preview updates.
func (s *Session) Move(p reorder.Point) {
	s.uiMu.Lock()
	lifted, changed := s.drag.Move(p)
	view := s.liftViewLocked()
	s.uiMu.Unlock()

	if lifted {
		s.Push(Event{Type: EventLift, Data: view})
		return
	}
	if changed {
		s.Push(Event{Type: EventPreview, Data: view})
	}
}

// Lift starts a keyboard drag on id.
func (s *Session) Lift(id string, layout []reorder.Item) error {
	s.touch()
	s.uiMu.Lock()
	err := s.drag.Lift(id, layout)
	view := s.liftViewLocked()
	s.uiMu.Unlock()
	if err != nil {
		return err
	}
	s.Push(Event{Type: EventLift, Data: view})
	return nil
}

// Step moves a keyboard drag one tile in dir.
func (s *Session) Step(dir reorder.Direction) error {
	s.uiMu.Lock()
	changed, err := s.drag.Step(dir)
	view := s.liftViewLocked()
	s.uiMu.Unlock()
	if err != nil {
		return err
	}
	if changed {
		s.Push(Event{Type: EventPreview, Data: view})
	}
	return nil
}

// Drop ends the gesture and, when the tile moved, commits the new order with
// a single store write.
func (s *Session) Drop() reorder.Drop {
	s.touch()
	s.uiMu.Lock()
	d := s.drag.Drop()
	s.uiMu.Unlock()

	if d.Moved && !s.grid.Move(d) {
		d.Moved = false
	}
	s.Push(Event{Type: EventDrop, Data: d})
	return d
}

// Cancel abandons the gesture (escape key, focus loss).
func (s *Session) Cancel() {
	s.uiMu.Lock()
	dragging := s.drag.State() == reorder.Dragging
	s.drag.Cancel()
	s.uiMu.Unlock()
	if dragging {
		s.Push(Event{Type: EventDrop, Data: reorder.Drop{From: -1, To: -1}})
	}
}

// DragState returns the engine state and the lifted tile id.
func (s *Session) DragState() (reorder.State, string) {
	s.uiMu.Lock()
	defer s.uiMu.Unlock()
	return s.drag.State(), s.drag.Lifted()
}

func (s *Session) liftViewLocked() LiftView {
	return LiftView{
		ActiveID: s.drag.Lifted(),
		OverID:   s.drag.Over(),
		Order:    s.drag.Preview(),
	}
}

// OpenMenu shows the context menu for id at p.
func (s *Session) OpenMenu(p reorder.Point, id string) error {
	s.touch()
	sc, ok := s.grid.Shortcut(id)
	if !ok {
		return shortcut.ErrNotFound
	}
	s.uiMu.Lock()
	s.menu.Open(p, sc)
	view := s.menu.View()
	s.uiMu.Unlock()
	s.Push(Event{Type: EventMenu, Data: view})
	return nil
}

// Click handles a page click; one outside the open menu dismisses it.
func (s *Session) Click(p reorder.Point) {
	s.uiMu.Lock()
	dismissed := s.menu.Click(p)
	view := s.menu.View()
	s.uiMu.Unlock()
	if dismissed {
		s.Push(Event{Type: EventMenu, Data: view})
	}
}

// Select runs a context menu action.
func (s *Session) Select(action string) (menu.Effect, error) {
	s.touch()
	s.uiMu.Lock()
	eff, err := s.menu.Select(action, s.grid, s.icons)
	view := s.menu.View()
	s.uiMu.Unlock()

	s.Push(Event{Type: EventMenu, Data: view})
	if err != nil {
		return eff, err
	}
	s.Push(Event{Type: EventEffect, Data: eff})
	return eff, nil
}

// MenuView returns the current menu render state.
func (s *Session) MenuView() menu.View {
	s.uiMu.Lock()
	defer s.uiMu.Unlock()
	return s.menu.View()
}
