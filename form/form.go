// Package form validates and normalizes the add/edit shortcut surface and
// applies the result to the store.
package form

import (
	"regexp"
	"strings"

	"startpage/shortcut"
)

var schemeRE = regexp.MustCompile(`(?i)^https?://`)

// Mutator is the part of the store a save needs.
type Mutator interface {
	AddShortcut(in shortcut.Input) shortcut.Shortcut
	UpdateShortcut(id string, p shortcut.Patch)
	RemoveShortcut(id string)
}

// Input is the raw content of the editing surface.
type Input struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Result tells the caller what the save did.
type Result struct {
	Shortcut shortcut.Shortcut `json:"shortcut"`
	Created  bool              `json:"created"`
	// Close is true when the editing surface should be dismissed.
	Close bool `json:"close"`
}

// Validate checks that both fields are non-empty after trimming. Malformed
// but non-empty urls pass; NormalizeURL makes them usable.
func Validate(title, url string) error {
	var fields []FieldError
	if strings.TrimSpace(title) == "" {
		fields = append(fields, FieldError{Field: "title", Code: MissingTitle, Message: "title is required"})
	}
	if strings.TrimSpace(url) == "" {
		fields = append(fields, FieldError{Field: "url", Code: MissingURL, Message: "url is required"})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// NormalizeURL trims u and prepends https:// unless it already carries an
// http or https scheme.
func NormalizeURL(u string) string {
	u = strings.TrimSpace(u)
	if !schemeRE.MatchString(u) {
		u = "https://" + u
	}
	return u
}

// Clean validates in and returns the trimmed title and normalized url.
func Clean(in Input) (shortcut.Input, error) {
	if err := Validate(in.Title, in.URL); err != nil {
		return shortcut.Input{}, err
	}
	return shortcut.Input{
		Title: strings.TrimSpace(in.Title),
		URL:   NormalizeURL(in.URL),
	}, nil
}

// Save validates in and either updates existingID or adds a new shortcut.
// On validation failure nothing is written and a *ValidationError is
// returned.
func Save(m Mutator, in Input, existingID string) (Result, error) {
	clean, err := Clean(in)
	if err != nil {
		return Result{}, err
	}

	if existingID != "" {
		m.UpdateShortcut(existingID, shortcut.Patch{Title: &clean.Title, URL: &clean.URL})
		return Result{
			Shortcut: shortcut.Shortcut{ID: existingID, Title: clean.Title, URL: clean.URL},
			Close:    true,
		}, nil
	}

	sc := m.AddShortcut(clean)
	return Result{Shortcut: sc, Created: true, Close: true}, nil
}

// Delete removes id. Unknown ids are a no-op.
func Delete(m Mutator, id string) {
	m.RemoveShortcut(id)
}
