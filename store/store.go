package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"startpage/reorder"
	"startpage/shortcut"
)

// Namespace is the key the whole state is persisted under.
const Namespace = "chrome-dash-storage"

// Version is the schema version written alongside the state.
const Version = 0

// record is the persisted envelope.
type record struct {
	State   *shortcut.State `json:"state"`
	Version int             `json:"version"`
}

// Store is the single owner of the shortcut grid and settings. Every mutation
// is applied in memory, written through to the backend and then published to
// subscribers. Persistence failures are logged and remembered but never undo
// the in-memory change.
type Store struct {
	mu         sync.RWMutex
	backend    Backend
	key        string
	state      shortcut.State
	persistErr error
	newID      func() string
	log        zerolog.Logger

	subMu   sync.Mutex
	subs    map[int]chan shortcut.State
	nextSub int
}

// Option customises a Store.
type Option func(*Store)

// WithKey overrides the namespace key.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithIDFunc overrides shortcut id generation.
func WithIDFunc(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New loads the persisted state from backend. Missing, unreadable or
// malformed records fall back to shortcut.Default(); New never fails.
func New(backend Backend, log zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		key:     Namespace,
		newID:   func() string { return uuid.New().String() },
		log:     log.With().Str("component", "store").Logger(),
		subs:    make(map[int]chan shortcut.State),
	}
	for _, o := range opts {
		o(s)
	}
	s.state = s.load()
	return s
}

func (s *Store) load() shortcut.State {
	data, err := s.backend.Load(s.key)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			s.log.Info().Str("key", s.key).Msg("no saved state, using defaults")
		} else {
			s.log.Warn().Err(err).Str("key", s.key).Msg("failed to read saved state, using defaults")
		}
		return shortcut.Default()
	}

	st, err := decode(data)
	if err != nil {
		s.log.Warn().Err(&MalformedError{Key: s.key, Err: err}).Msg("discarding saved state")
		return shortcut.Default()
	}
	return s.repair(st)
}

// decode unmarshals a record on top of the default settings so fields
// missing from older records keep their default values. Shortcuts decode
// into a fresh list; a record without one gets the default shortcuts.
func decode(data []byte) (shortcut.State, error) {
	def := shortcut.Default()
	def.Shortcuts = nil
	rec := record{State: &def}
	if err := json.Unmarshal(data, &rec); err != nil {
		return shortcut.State{}, err
	}
	if rec.State == nil {
		return shortcut.State{}, errors.New("record has no state")
	}
	if rec.Version > Version {
		return shortcut.State{}, fmt.Errorf("unsupported version %d", rec.Version)
	}
	if rec.State.Shortcuts == nil {
		rec.State.Shortcuts = shortcut.Default().Shortcuts
	}
	return *rec.State, nil
}

// repair gives entries with an empty or duplicate id a fresh one.
func (s *Store) repair(st shortcut.State) shortcut.State {
	seen := make(map[string]bool, len(st.Shortcuts))
	for i, sc := range st.Shortcuts {
		if sc.ID == "" || seen[sc.ID] {
			st.Shortcuts[i].ID = s.newID()
			s.log.Warn().Str("title", sc.Title).Msg("reassigned shortcut id")
		}
		seen[st.Shortcuts[i].ID] = true
	}
	return st
}

// State returns a snapshot of the current state.
func (s *Store) State() shortcut.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Shortcut returns the shortcut with id.
func (s *Store) Shortcut(id string) (shortcut.Shortcut, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, i := s.state.Find(id)
	return sc, i >= 0
}

// LastPersistError returns the error of the most recent write, or nil once a
// later write has succeeded.
func (s *Store) LastPersistError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistErr
}

// AddShortcut appends a new shortcut with a freshly generated id.
func (s *Store) AddShortcut(in shortcut.Input) shortcut.Shortcut {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := shortcut.Shortcut{ID: s.newID(), Title: in.Title, URL: in.URL}
	s.state.Shortcuts = append(s.state.Shortcuts, sc)
	s.commit("add")
	return sc
}

// RemoveShortcut deletes the shortcut with id. Unknown ids are ignored.
func (s *Store) RemoveShortcut(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, i := s.state.Find(id)
	if i < 0 {
		return
	}
	list := make([]shortcut.Shortcut, 0, len(s.state.Shortcuts)-1)
	list = append(list, s.state.Shortcuts[:i]...)
	list = append(list, s.state.Shortcuts[i+1:]...)
	s.state.Shortcuts = list
	s.commit("remove")
}

// UpdateShortcut merges p into the shortcut with id. Unknown ids are ignored.
func (s *Store) UpdateShortcut(id string, p shortcut.Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, i := s.state.Find(id)
	if i < 0 {
		return
	}
	s.state.Shortcuts[i] = p.Apply(sc)
	s.commit("update")
}

// SetShortcuts replaces the whole ordered list.
func (s *Store) SetShortcuts(list []shortcut.Shortcut) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]shortcut.Shortcut, len(list))
	copy(cp, list)
	s.state.Shortcuts = cp
	s.commit("set")
}

// Move applies a finished drag to the current list under the store lock, so
// writes that landed during the gesture are kept. It reports whether the
// order changed; nothing is written otherwise.
func (s *Store) Move(d reorder.Drop) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := reorder.Commit(s.state.Shortcuts, d, func(sc shortcut.Shortcut) string { return sc.ID })
	if !ok {
		return false
	}
	s.state.Shortcuts = list
	s.commit("move")
	return true
}

// SetIcon caches icon on the shortcut with id, but only while it still
// points at url. A shortcut whose url was edited meanwhile is left alone.
func (s *Store) SetIcon(id, url, icon string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, i := s.state.Find(id)
	if i < 0 || sc.URL != url {
		return false
	}
	s.state.Shortcuts[i] = shortcut.SetIcon(icon).Apply(sc)
	s.commit("icon")
	return true
}

// Reorder replaces the list with the existing shortcuts arranged in ids
// order. ids must be a permutation of the current ids.
func (s *Store) Reorder(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ids) != len(s.state.Shortcuts) {
		return ErrNotPermutation
	}
	byID := make(map[string]shortcut.Shortcut, len(s.state.Shortcuts))
	for _, sc := range s.state.Shortcuts {
		byID[sc.ID] = sc
	}
	list := make([]shortcut.Shortcut, 0, len(ids))
	for _, id := range ids {
		sc, ok := byID[id]
		if !ok {
			return ErrNotPermutation
		}
		delete(byID, id)
		list = append(list, sc)
	}
	s.state.Shortcuts = list
	s.commit("reorder")
	return nil
}

// UpdateSettings merges p into the settings.
func (s *Store) UpdateSettings(p shortcut.SettingsPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Settings = p.Apply(s.state.Settings)
	s.commit("settings")
}

// UpdateWeatherConfig merges p into the weather settings.
func (s *Store) UpdateWeatherConfig(p shortcut.WeatherPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Settings.Weather = p.Apply(s.state.Settings.Weather)
	s.commit("weather")
}

// Replace swaps in an entirely new state.
func (s *Store) Replace(st shortcut.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.repair(st.Clone())
	if s.state.Shortcuts == nil {
		s.state.Shortcuts = []shortcut.Shortcut{}
	}
	s.commit("replace")
}

// commit persists and publishes the current state. Caller holds s.mu.
func (s *Store) commit(op string) {
	if err := s.persist(); err != nil {
		s.persistErr = err
		s.log.Error().Err(err).Str("op", op).Msg("state kept in memory only")
	} else {
		s.persistErr = nil
	}
	s.publish(s.state.Clone())
}

func (s *Store) persist() error {
	st := s.state
	data, err := json.Marshal(record{State: &st, Version: Version})
	if err != nil {
		return &PersistenceError{Key: s.key, Err: err}
	}
	if err := s.backend.Save(s.key, data); err != nil {
		return &PersistenceError{Key: s.key, Err: err}
	}
	return nil
}
