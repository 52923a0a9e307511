package store

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"startpage/form"
	"startpage/shortcut"
)

// exportFile is the user-editable YAML layout. Ids and cached icons are not
// exported; they are regenerated on import.
type exportFile struct {
	Shortcuts []exportShortcut `yaml:"shortcuts"`
	Settings  *exportSettings  `yaml:"settings,omitempty"`
}

type exportShortcut struct {
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

type exportSettings struct {
	Theme        string        `yaml:"theme"`
	Use24Hour    bool          `yaml:"use24Hour"`
	GlassOpacity float64       `yaml:"glassOpacity"`
	Weather      exportWeather `yaml:"weather"`
}

type exportWeather struct {
	Mode string   `yaml:"mode"`
	City string   `yaml:"city"`
	Lat  *float64 `yaml:"lat,omitempty"`
	Lon  *float64 `yaml:"lon,omitempty"`
}

// Export writes the grid and settings as YAML.
func (s *Store) Export(w io.Writer) error {
	st := s.State()
	out := exportFile{Shortcuts: make([]exportShortcut, len(st.Shortcuts))}
	for i, sc := range st.Shortcuts {
		out.Shortcuts[i] = exportShortcut{Title: sc.Title, URL: sc.URL}
	}
	set := st.Settings
	out.Settings = &exportSettings{
		Theme:        set.Theme,
		Use24Hour:    set.Use24Hour,
		GlassOpacity: set.GlassOpacity,
		Weather: exportWeather{
			Mode: set.Weather.Mode,
			City: set.Weather.City,
			Lat:  set.Weather.Lat,
			Lon:  set.Weather.Lon,
		},
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// Import replaces the grid (and settings, when present) with the contents of
// a YAML export. Every entry is validated and normalized like a form save;
// the first invalid entry aborts the import without touching the store.
func (s *Store) Import(r io.Reader) (int, error) {
	var in exportFile
	if err := yaml.NewDecoder(r).Decode(&in); err != nil {
		return 0, fmt.Errorf("decode yaml: %w", err)
	}

	next := s.State()
	list := make([]shortcut.Shortcut, 0, len(in.Shortcuts))
	for i, e := range in.Shortcuts {
		clean, err := form.Clean(form.Input{Title: e.Title, URL: e.URL})
		if err != nil {
			return 0, fmt.Errorf("shortcut %d: %w", i+1, err)
		}
		list = append(list, shortcut.Shortcut{ID: s.newID(), Title: clean.Title, URL: clean.URL})
	}
	next.Shortcuts = list

	if in.Settings != nil {
		next.Settings = shortcut.Settings{
			Theme:        in.Settings.Theme,
			Use24Hour:    in.Settings.Use24Hour,
			GlassOpacity: in.Settings.GlassOpacity,
			Weather: shortcut.WeatherConfig{
				Mode: in.Settings.Weather.Mode,
				City: in.Settings.Weather.City,
				Lat:  in.Settings.Weather.Lat,
				Lon:  in.Settings.Weather.Lon,
			},
		}
	}

	s.Replace(next)
	return len(list), nil
}
