package store

import "startpage/shortcut"

// Subscribe returns a channel that receives a snapshot after every mutation,
// and a func that unsubscribes and closes the channel. The channel holds at
// most one pending snapshot; a slow reader only ever sees the latest state.
func (s *Store) Subscribe() (<-chan shortcut.State, func()) {
	ch := make(chan shortcut.State, 1)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// publish is called with s.mu held, so snapshots reach each channel in
// mutation order.
func (s *Store) publish(st shortcut.State) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- st:
			continue
		default:
		}
		// Drop the stale pending snapshot and replace it.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}
