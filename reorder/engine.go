package reorder

import "errors"

// DefaultActivationDistance is how far (px) a pressed pointer must travel
// before the press becomes a drag rather than a click.
const DefaultActivationDistance = 8

var (
	ErrNotDragging = errors.New("no drag in progress")
	ErrUnknownItem = errors.New("item not in layout")
)

// State is the engine's top-level state.
type State string

const (
	Idle     State = "idle"
	Dragging State = "dragging"
)

// Drop describes how a drag ended.
type Drop struct {
	ActiveID string `json:"activeId"`
	// OverID is the item the dragged one was released over; "" when none.
	OverID string `json:"overId"`
	From   int    `json:"from"`
	To     int    `json:"to"`
	// Moved is true when the drop should be committed (To != From).
	Moved bool `json:"moved"`
	// Click is true when a press was released before activating a drag.
	Click bool `json:"click"`
}

// Engine is the drag state machine for one grid view. It is not safe for
// concurrent use; each client session owns its own engine.
type Engine struct {
	ActivationDistance float64

	state State

	// pending press, only meaningful while Idle
	pressed bool
	pressID string
	pressAt Point

	// drag session, only meaningful while Dragging
	active string
	origin int
	target int
	grabAt Point
	layout []Item
	order  []string
}

// NewEngine returns an idle engine with the default activation distance.
func NewEngine() *Engine {
	return &Engine{ActivationDistance: DefaultActivationDistance, state: Idle, target: -1}
}

// State returns the current state.
func (e *Engine) State() State { return e.state }

// Lifted returns the id of the item being dragged, or "".
func (e *Engine) Lifted() string {
	if e.state != Dragging {
		return ""
	}
	return e.active
}

// Press records a pointer-down on id. The drag starts only once Move sees
// the pointer travel at least ActivationDistance from p.
func (e *Engine) Press(id string, p Point, layout []Item) error {
	if e.state == Dragging {
		return nil
	}
	if indexOf(layout, id) < 0 {
		return ErrUnknownItem
	}
	e.pressed, e.pressID, e.pressAt = true, id, p
	e.layout = cloneLayout(layout)
	return nil
}

// Lift starts a drag on id immediately (keyboard activation).
func (e *Engine) Lift(id string, layout []Item) error {
	if e.state == Dragging {
		return nil
	}
	i := indexOf(layout, id)
	if i < 0 {
		return ErrUnknownItem
	}
	e.layout = cloneLayout(layout)
	e.begin(id, i, layout[i].Rect.Center())
	return nil
}

func (e *Engine) begin(id string, origin int, grab Point) {
	e.state = Dragging
	e.pressed = false
	e.active = id
	e.origin = origin
	e.target = origin
	e.grabAt = grab
	e.order = make([]string, len(e.layout))
	for i, it := range e.layout {
		e.order[i] = it.ID
	}
}

// Move feeds a pointer position. It reports lifted=true on the update that
// activates the drag and changed=true whenever the preview order changes.
func (e *Engine) Move(p Point) (lifted, changed bool) {
	if e.state == Idle {
		if !e.pressed || p.Dist(e.pressAt) < e.activation() {
			return false, false
		}
		e.begin(e.pressID, indexOf(e.layout, e.pressID), e.pressAt)
		lifted = true
	}

	// The dragged tile follows the pointer, so probe with its centre shifted
	// by the pointer's travel since the grab.
	probe := e.layout[e.origin].Rect.Center().Add(p.Sub(e.grabAt))
	over, ok := ClosestCenter(e.layout, probe)
	if !ok {
		over = -1
	}
	if over != e.target {
		e.target = over
		changed = true
	}
	return lifted, changed || lifted
}

// Step moves the keyboard-driven target one tile in dir. It reports whether
// the target changed.
func (e *Engine) Step(dir Direction) (bool, error) {
	if e.state != Dragging {
		return false, ErrNotDragging
	}
	from := e.target
	if from < 0 {
		from = e.origin
	}
	next, ok := Neighbor(e.layout, from, dir)
	if !ok {
		return false, nil
	}
	e.target = next
	return true, nil
}

// Preview returns the uncommitted order the grid should render right now.
func (e *Engine) Preview() []string {
	if e.state != Dragging {
		return nil
	}
	if e.target < 0 {
		return append([]string(nil), e.order...)
	}
	return Move(e.order, e.origin, e.target)
}

// Over returns the id currently under the dragged tile, or "".
func (e *Engine) Over() string {
	if e.state != Dragging || e.target < 0 {
		return ""
	}
	return e.order[e.target]
}

// Drop ends the gesture. The engine is Idle afterwards whatever the outcome.
func (e *Engine) Drop() Drop {
	defer e.reset()
	if e.state != Dragging {
		if e.pressed {
			return Drop{ActiveID: e.pressID, Click: true, From: -1, To: -1}
		}
		return Drop{From: -1, To: -1}
	}
	d := Drop{ActiveID: e.active, From: e.origin, To: e.target}
	if e.target >= 0 {
		d.OverID = e.order[e.target]
		d.Moved = e.target != e.origin
	}
	return d
}

// Cancel abandons the gesture without committing.
func (e *Engine) Cancel() {
	e.reset()
}

func (e *Engine) reset() {
	e.state = Idle
	e.pressed = false
	e.pressID = ""
	e.active = ""
	e.origin, e.target = 0, -1
	e.layout = nil
	e.order = nil
}

func (e *Engine) activation() float64 {
	if e.ActivationDistance <= 0 {
		return DefaultActivationDistance
	}
	return e.ActivationDistance
}

func indexOf(items []Item, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func cloneLayout(items []Item) []Item {
	return append([]Item(nil), items...)
}

// Commit applies a drop to list. Items are located by id rather than by the
// drop's indices so the result is right even if list changed during the
// drag. ok is false when nothing should be written.
func Commit[T any](list []T, d Drop, id func(T) string) ([]T, bool) {
	if !d.Moved || d.OverID == "" || d.OverID == d.ActiveID {
		return list, false
	}
	from, to := -1, -1
	for i, v := range list {
		switch id(v) {
		case d.ActiveID:
			from = i
		case d.OverID:
			to = i
		}
	}
	if from < 0 || to < 0 {
		return list, false
	}
	return Move(list, from, to), true
}
