package shortcut

import "errors"

// Shortcut is a single link tile on the start page.
type Shortcut struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	CachedIcon string `json:"cachedIcon,omitempty"` // data: URL or raw source URL; "" = unresolved
}

// Input is the user-supplied part of a new shortcut.
type Input struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Patch is a partial update. Nil fields are left untouched; a CachedIcon
// pointing at "" clears the cached icon.
type Patch struct {
	Title      *string `json:"title,omitempty"`
	URL        *string `json:"url,omitempty"`
	CachedIcon *string `json:"cachedIcon,omitempty"`
}

// Apply merges p into s and returns the result.
func (p Patch) Apply(s Shortcut) Shortcut {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.URL != nil {
		s.URL = *p.URL
	}
	if p.CachedIcon != nil {
		s.CachedIcon = *p.CachedIcon
	}
	return s
}

// ClearIcon returns a patch that drops the cached icon.
func ClearIcon() Patch {
	empty := ""
	return Patch{CachedIcon: &empty}
}

// SetIcon returns a patch that stores icon as the cached icon.
func SetIcon(icon string) Patch {
	return Patch{CachedIcon: &icon}
}

// State is the full persisted state: the ordered grid plus settings.
type State struct {
	Shortcuts []Shortcut `json:"shortcuts"`
	Settings  Settings   `json:"settings"`
}

// Clone returns a deep copy safe to hand out to readers.
func (s State) Clone() State {
	out := State{Settings: s.Settings.clone()}
	out.Shortcuts = make([]Shortcut, len(s.Shortcuts))
	copy(out.Shortcuts, s.Shortcuts)
	return out
}

// Find returns the shortcut with id and its index, or -1.
func (s State) Find(id string) (Shortcut, int) {
	for i, sc := range s.Shortcuts {
		if sc.ID == id {
			return sc, i
		}
	}
	return Shortcut{}, -1
}

// IDs returns the shortcut ids in grid order.
func (s State) IDs() []string {
	ids := make([]string, len(s.Shortcuts))
	for i, sc := range s.Shortcuts {
		ids[i] = sc.ID
	}
	return ids
}

var ErrNotFound = errors.New("shortcut not found")
