package api

import (
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"startpage/reorder"
	"startpage/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Intent types sent by the page.
const (
	IntentPress  = "press"
	IntentMove   = "move"
	IntentKey    = "key"
	IntentDrop   = "drop"
	IntentCancel = "cancel"
	IntentMenu   = "menu"
	IntentClick  = "click"
	IntentSelect = "select"
)

var errUnknownIntent = errors.New("unknown intent")

// intent is one input event forwarded by the page.
type intent struct {
	Type   string         `json:"type"`
	ID     string         `json:"id,omitempty"`
	X      float64        `json:"x"`
	Y      float64        `json:"y"`
	Key    string         `json:"key,omitempty"`
	Action string         `json:"action,omitempty"`
	Layout []reorder.Item `json:"layout,omitempty"`
}

func (in intent) point() reorder.Point { return reorder.Point{X: in.X, Y: in.Y} }

var arrowKeys = map[string]reorder.Direction{
	"ArrowLeft":  reorder.Left,
	"ArrowRight": reorder.Right,
	"ArrowUp":    reorder.Up,
	"ArrowDown":  reorder.Down,
}

func (h *handler) handleWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, ok := h.manager.Get(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("session", id).Msg("ws upgrade")
		return
	}
	defer conn.Close()

	// Serialise all WebSocket writes; gorilla/websocket forbids concurrent writes.
	var writeMu sync.Mutex
	writeMsg := func(ev session.Event) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(ev)
	}

	outChan := make(chan session.Event, 64)
	kick := s.SetClient(outChan) // kicks any prior client
	defer s.ClearClient(outChan) // closes outChan, cancels any drag if still owner

	if err := writeMsg(session.Event{Type: session.EventState, Data: h.view(h.store.State())}); err != nil {
		return
	}

	// Pump pushed events to the client. Exits when ClearClient closes outChan.
	go func() {
		for ev := range outChan {
			if err := writeMsg(ev); err != nil {
				return
			}
		}
	}()

	// Watch for session end or displacement and close the connection so
	// ReadJSON below unblocks immediately.
	connDone := make(chan struct{})
	go func() {
		select {
		case <-s.Done():
			writeMsg(session.Event{Type: "closed"}) //nolint:errcheck
			conn.Close()
		case <-kick:
			conn.Close()
		case <-connDone:
		}
	}()
	defer close(connDone)

	for {
		var in intent
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		if err := dispatch(s, in); err != nil {
			s.Push(session.Event{Type: session.EventError, Data: map[string]string{"intent": in.Type, "error": err.Error()}})
		}
	}
}

// dispatch applies one intent to the session.
func dispatch(s *session.Session, in intent) error {
	switch in.Type {
	case IntentPress:
		return s.Press(in.ID, in.point(), in.Layout)
	case IntentMove:
		s.Move(in.point())
	case IntentKey:
		return key(s, in)
	case IntentDrop:
		s.Drop()
	case IntentCancel:
		s.Cancel()
	case IntentMenu:
		return s.OpenMenu(in.point(), in.ID)
	case IntentClick:
		s.Click(in.point())
	case IntentSelect:
		_, err := s.Select(in.Action)
		return err
	default:
		return errUnknownIntent
	}
	return nil
}

// key maps keyboard input onto the drag: space/enter lifts or drops, arrows
// move the lifted tile, escape cancels.
func key(s *session.Session, in intent) error {
	if dir, ok := arrowKeys[in.Key]; ok {
		return s.Step(dir)
	}
	switch in.Key {
	case " ", "Enter":
		if st, _ := s.DragState(); st == reorder.Dragging {
			s.Drop()
			return nil
		}
		return s.Lift(in.ID, in.Layout)
	case "Escape":
		s.Cancel()
		return nil
	}
	return nil
}
