// Package icon resolves a displayable icon for a shortcut url by walking an
// ordered list of candidate sources, and caches the winner on the shortcut.
package icon

import (
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Candidate source kinds, in resolution order.
const (
	SourceVector  = "vector"
	SourceFavicon = "favicon"
	SourceSite    = "site"
)

// Sources holds the base urls of the icon services.
type Sources struct {
	// VectorBase is prefixed to the brand slug, e.g. https://cdn.simpleicons.org/
	VectorBase string
	// FaviconBase receives ?domain=<host>&sz=<size>.
	FaviconBase string
	FaviconSize int
	// Discover appends a last candidate that reads the site's own
	// <link rel="icon"> declaration.
	Discover bool
}

// DefaultSources returns the public services used by default.
func DefaultSources() Sources {
	return Sources{
		VectorBase:  "https://cdn.simpleicons.org/",
		FaviconBase: "https://www.google.com/s2/favicons",
		FaviconSize: 128,
	}
}

// Candidate is one entry of the fallback chain.
type Candidate struct {
	Source string `json:"source"`
	URL    string `json:"url"`
}

// genericSLD lists second-level labels that are not a brand (example.co.uk).
var genericSLD = map[string]bool{
	"co": true, "com": true, "org": true, "net": true, "edu": true, "gov": true,
}

// Brand guesses a brand slug from a hostname: the second-to-last label, or
// the third-to-last when the second-to-last is a generic label like "co".
func Brand(host string) string {
	parts := strings.Split(host, ".")
	name := parts[0]
	if len(parts) > 1 {
		name = parts[len(parts)-2]
	}
	if genericSLD[name] && len(parts) > 2 {
		name = parts[len(parts)-3]
	}
	return name
}

// Hostname returns the lowercased host of rawURL without port. ok is false
// when rawURL is not an absolute url with a host.
func Hostname(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	return host, host != ""
}

// Candidates builds the ordered fallback chain for rawURL. A url without a
// parseable host yields no candidates.
func (s Sources) Candidates(rawURL string) []Candidate {
	host, ok := Hostname(rawURL)
	if !ok {
		return nil
	}

	size := s.FaviconSize
	if size <= 0 {
		size = 128
	}
	q := url.Values{}
	q.Set("domain", host)

	out := []Candidate{
		{Source: SourceVector, URL: s.VectorBase + url.PathEscape(Brand(host))},
		{Source: SourceFavicon, URL: s.FaviconBase + "?" + q.Encode() + "&sz=" + strconv.Itoa(size)},
	}
	if s.Discover {
		out = append(out, Candidate{Source: SourceSite, URL: rawURL})
	}
	return out
}

// Glyph is the single-letter fallback shown when no icon resolves.
func Glyph(title string) string {
	r, _ := utf8.DecodeRuneInString(title)
	if title == "" || r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}
