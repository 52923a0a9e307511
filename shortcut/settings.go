package shortcut

import "encoding/json"

// Theme values accepted by the settings UI.
const (
	ThemeAuto  = "auto"
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Weather location modes.
const (
	WeatherAuto   = "auto"
	WeatherManual = "manual"
)

// Settings is process-wide configuration read by the clock, weather and
// wallpaper widgets. The grid only passes it through.
type Settings struct {
	Theme        string        `json:"theme"`
	Use24Hour    bool          `json:"use24Hour"`
	GlassOpacity float64       `json:"glassOpacity"`
	Weather      WeatherConfig `json:"weather"`
}

// WeatherConfig selects where the weather widget looks up conditions.
type WeatherConfig struct {
	Mode string   `json:"mode"`
	City string   `json:"city"`
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
}

func (s Settings) clone() Settings {
	s.Weather.Lat = cloneFloat(s.Weather.Lat)
	s.Weather.Lon = cloneFloat(s.Weather.Lon)
	return s
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// SettingsPatch merges into Settings; nil fields are untouched.
type SettingsPatch struct {
	Theme        *string       `json:"theme,omitempty"`
	Use24Hour    *bool         `json:"use24Hour,omitempty"`
	GlassOpacity *float64      `json:"glassOpacity,omitempty"`
	Weather      *WeatherPatch `json:"weather,omitempty"`
}

// Apply merges p into s.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.Use24Hour != nil {
		s.Use24Hour = *p.Use24Hour
	}
	if p.GlassOpacity != nil {
		s.GlassOpacity = *p.GlassOpacity
	}
	if p.Weather != nil {
		s.Weather = p.Weather.Apply(s.Weather)
	}
	return s
}

// WeatherPatch merges into WeatherConfig. Lat and Lon are only replaced when
// their Set flag is true so that a patch can clear them back to null.
type WeatherPatch struct {
	Mode   *string  `json:"mode,omitempty"`
	City   *string  `json:"city,omitempty"`
	Lat    *float64 `json:"lat,omitempty"`
	Lon    *float64 `json:"lon,omitempty"`
	SetLat bool     `json:"-"`
	SetLon bool     `json:"-"`
}

// Apply merges p into w.
func (p WeatherPatch) Apply(w WeatherConfig) WeatherConfig {
	if p.Mode != nil {
		w.Mode = *p.Mode
	}
	if p.City != nil {
		w.City = *p.City
	}
	if p.Lat != nil || p.SetLat {
		w.Lat = cloneFloat(p.Lat)
	}
	if p.Lon != nil || p.SetLon {
		w.Lon = cloneFloat(p.Lon)
	}
	return w
}

// UnmarshalJSON records whether lat/lon were present so that an explicit
// null clears them.
func (p *WeatherPatch) UnmarshalJSON(data []byte) error {
	type plain WeatherPatch
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	_, v.SetLat = keys["lat"]
	_, v.SetLon = keys["lon"]
	*p = WeatherPatch(v)
	return nil
}

// Default returns the built-in state used on first start and whenever the
// persisted record cannot be read.
func Default() State {
	return State{
		Shortcuts: []Shortcut{
			{ID: "1", Title: "Google", URL: "https://google.com"},
			{ID: "2", Title: "YouTube", URL: "https://youtube.com"},
			{ID: "3", Title: "GitHub", URL: "https://github.com"},
			{ID: "4", Title: "Bilibili", URL: "https://bilibili.com"},
		},
		Settings: DefaultSettings(),
	}
}

// DefaultSettings returns the built-in settings.
func DefaultSettings() Settings {
	return Settings{
		Theme:        ThemeAuto,
		Use24Hour:    true,
		GlassOpacity: 0.1,
		Weather: WeatherConfig{
			Mode: WeatherAuto,
			City: "Local",
		},
	}
}
