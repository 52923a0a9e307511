// Package menu is the per-tile context menu: where it is, which shortcut it
// targets, and what each action does.
package menu

import (
	"errors"

	"startpage/reorder"
	"startpage/shortcut"
)

// Action names accepted by Select.
const (
	ActionOpen    = "open"
	ActionEdit    = "edit"
	ActionRefresh = "refresh"
)

// Default menu box size used for outside-click detection.
const (
	DefaultWidth  = 160
	DefaultHeight = 120
)

var (
	ErrClosed        = errors.New("context menu is not open")
	ErrUnknownAction = errors.New("unknown menu action")
	ErrGone          = errors.New("menu target no longer exists")
)

// Lookup returns the current version of a shortcut.
type Lookup interface {
	Shortcut(id string) (shortcut.Shortcut, bool)
}

// Refresher clears a shortcut's cached icon and restarts its resolution.
type Refresher interface {
	Invalidate(sc shortcut.Shortcut)
}

// Effect is what the client must do after an action.
type Effect struct {
	Kind string `json:"kind"`
	// URL is set for navigate effects.
	URL string `json:"url,omitempty"`
	// NewContext asks the client to open URL in a new tab/window.
	NewContext bool `json:"newContext,omitempty"`
	// Form is set for edit effects.
	Form *EditForm `json:"form,omitempty"`
	ID   string    `json:"id,omitempty"`
}

// Effect kinds.
const (
	EffectNavigate = "navigate"
	EffectEdit     = "edit"
	EffectRefresh  = "refresh"
)

// EditForm pre-populates the editing surface.
type EditForm struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Menu is the context menu of one view.
type Menu struct {
	Width, Height float64

	visible bool
	at      reorder.Point
	target  shortcut.Shortcut
}

// New returns a hidden menu with the default size.
func New() *Menu {
	return &Menu{Width: DefaultWidth, Height: DefaultHeight}
}

// View is the render state of the menu.
type View struct {
	Visible  bool    `json:"visible"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	TargetID string  `json:"targetId,omitempty"`
}

// View returns what to render.
func (m *Menu) View() View {
	if !m.visible {
		return View{}
	}
	return View{Visible: true, X: m.at.X, Y: m.at.Y, TargetID: m.target.ID}
}

// Visible reports whether the menu is open.
func (m *Menu) Visible() bool { return m.visible }

// Target returns the shortcut the menu was opened on.
func (m *Menu) Target() (shortcut.Shortcut, bool) {
	return m.target, m.visible
}

// Open shows the menu at the pointer position captured at invocation, bound
// to sc. Opening again moves it to the new target.
func (m *Menu) Open(p reorder.Point, sc shortcut.Shortcut) {
	m.visible = true
	m.at = p
	m.target = sc
}

// Dismiss hides the menu.
func (m *Menu) Dismiss() {
	m.visible = false
	m.target = shortcut.Shortcut{}
}

// Bounds returns the box the menu occupies.
func (m *Menu) Bounds() reorder.Rect {
	return reorder.Rect{X: m.at.X, Y: m.at.Y, W: m.Width, H: m.Height}
}

// Click handles a click anywhere on the page. A click outside the menu
// dismisses it; it reports whether that happened.
func (m *Menu) Click(p reorder.Point) bool {
	if !m.visible || m.Bounds().Contains(p) {
		return false
	}
	m.Dismiss()
	return true
}

// Select runs action against the current version of the target and always
// dismisses the menu.
func (m *Menu) Select(action string, src Lookup, r Refresher) (Effect, error) {
	if !m.visible {
		return Effect{}, ErrClosed
	}
	defer m.Dismiss()
	sc, ok := src.Shortcut(m.target.ID)
	if !ok {
		return Effect{}, ErrGone
	}

	switch action {
	case ActionOpen:
		return Effect{Kind: EffectNavigate, URL: sc.URL, NewContext: true, ID: sc.ID}, nil
	case ActionEdit:
		return Effect{Kind: EffectEdit, ID: sc.ID, Form: &EditForm{ID: sc.ID, Title: sc.Title, URL: sc.URL}}, nil
	case ActionRefresh:
		r.Invalidate(sc)
		return Effect{Kind: EffectRefresh, ID: sc.ID}, nil
	default:
		return Effect{}, ErrUnknownAction
	}
}
