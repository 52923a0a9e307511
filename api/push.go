package api

import (
	"context"

	"startpage/icon"
	"startpage/session"
	"startpage/shortcut"
	"startpage/store"
)

// IconEvent is pushed when a tile's icon resolution moves on.
type IconEvent struct {
	ID         string       `json:"id"`
	Resolution icon.Attempt `json:"resolution"`
}

// Pusher fans store changes and icon progress out to every connected page.
type Pusher struct {
	store   *store.Store
	icons   *icon.Resolver
	manager *session.Manager
}

// NewPusher hooks the resolver's status changes. Call it before any icon
// chain starts.
func NewPusher(st *store.Store, icons *icon.Resolver, m *session.Manager) *Pusher {
	p := &Pusher{store: st, icons: icons, manager: m}
	icons.OnChange = func(id string, a icon.Attempt) {
		m.Broadcast(session.Event{Type: session.EventIcon, Data: IconEvent{ID: id, Resolution: a}})
	}
	return p
}

// Run pushes a fresh view after every store mutation until ctx is done.
func (p *Pusher) Run(ctx context.Context) {
	updates, unsubscribe := p.store.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			p.manager.Broadcast(session.Event{Type: session.EventState, Data: p.view(st)})
		}
	}
}

func (p *Pusher) view(st shortcut.State) View {
	return View{Shortcuts: p.icons.Tiles(st), Settings: st.Settings}
}
