// Package wallpaper fetches the daily background image and caches it for the
// rest of the local day.
package wallpaper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"startpage/kvcache"
)

const (
	DefaultFeedURL     = "https://bing.biturl.top/?resolution=1920&format=json&index=0&mkt=zh-CN"
	DefaultFallbackURL = "https://bing.biturl.top/?resolution=1920&format=image&index=0&mkt=zh-CN"

	cacheKey = "bing_wallpaper_cache_v1"
	bingHost = "https://www.bing.com"
)

var ErrBadFeed = errors.New("unrecognised wallpaper feed")

// Detail describes the image.
type Detail struct {
	Title         string `json:"title"`
	Copyright     string `json:"copyright"`
	CopyrightLink string `json:"copyrightlink,omitempty"`
	Date          string `json:"date"`
}

// Wallpaper is what the page renders behind the grid.
type Wallpaper struct {
	URL    string  `json:"url"`
	Detail *Detail `json:"detail,omitempty"`
	// Fallback is true when the feed could not be read and URL is the
	// direct-image fallback.
	Fallback bool `json:"fallback,omitempty"`
}

type cached struct {
	FetchDate string  `json:"fetchDate"`
	URL       string  `json:"url"`
	Detail    *Detail `json:"detail"`
}

// feed covers both the flat biturl shape and the standard images[] shape.
type feed struct {
	URL           string `json:"url"`
	Copyright     string `json:"copyright"`
	CopyrightLink string `json:"copyright_link"`
	EndDate       string `json:"end_date"`
	Images        []struct {
		URL           string `json:"url"`
		Title         string `json:"title"`
		Copyright     string `json:"copyright"`
		CopyrightLink string `json:"copyrightlink"`
		EndDate       string `json:"enddate"`
	} `json:"images"`
}

// Service serves today's wallpaper.
type Service struct {
	FeedURL     string
	FallbackURL string
	Client      *http.Client

	cache kvcache.Cache
	log   zerolog.Logger
	now   func() time.Time

	mu sync.Mutex
}

func NewService(cache kvcache.Cache, log zerolog.Logger) *Service {
	return &Service{
		FeedURL:     DefaultFeedURL,
		FallbackURL: DefaultFallbackURL,
		Client:      &http.Client{Timeout: 10 * time.Second},
		cache:       cache,
		log:         log.With().Str("component", "wallpaper").Logger(),
		now:         time.Now,
	}
}

func (s *Service) today() string {
	return s.now().Format("Mon Jan 02 2006")
}

// Today returns the cached wallpaper when it was fetched today, otherwise
// fetches the feed. It never fails: feed errors yield the fallback image.
func (s *Service) Today(ctx context.Context) Wallpaper {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := s.today()
	var c cached
	found, err := s.cache.Get(cacheKey, &c)
	if err != nil {
		s.log.Warn().Err(err).Msg("wallpaper cache unreadable")
		_ = s.cache.Delete(cacheKey)
	}
	if found && c.FetchDate == day && c.URL != "" {
		return Wallpaper{URL: c.URL, Detail: c.Detail}
	}

	wp, err := s.fetch(ctx, day)
	if err != nil {
		s.log.Error().Err(err).Str("fallback", s.FallbackURL).Msg("fetch wallpaper")
		return Wallpaper{URL: s.FallbackURL, Fallback: true}
	}
	if err := s.cache.Set(cacheKey, cached{FetchDate: day, URL: wp.URL, Detail: wp.Detail}, 48*time.Hour); err != nil {
		s.log.Warn().Err(err).Msg("cache wallpaper")
	}
	return wp
}

func (s *Service) fetch(ctx context.Context, day string) (Wallpaper, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.FeedURL, nil)
	if err != nil {
		return Wallpaper{}, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return Wallpaper{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Wallpaper{}, fmt.Errorf("wallpaper feed: HTTP %d", resp.StatusCode)
	}

	var f feed
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&f); err != nil {
		return Wallpaper{}, fmt.Errorf("decode wallpaper feed: %w", err)
	}
	return parse(f, day)
}

func parse(f feed, day string) (Wallpaper, error) {
	if f.URL != "" {
		title := strings.TrimSpace(strings.SplitN(f.Copyright, "(", 2)[0])
		if title == "" {
			title = "Daily Wallpaper"
		}
		date := f.EndDate
		if date == "" {
			date = day
		}
		return Wallpaper{URL: f.URL, Detail: &Detail{
			Title:         title,
			Copyright:     f.Copyright,
			CopyrightLink: f.CopyrightLink,
			Date:          date,
		}}, nil
	}
	if len(f.Images) > 0 {
		img := f.Images[0]
		u := img.URL
		if !strings.HasPrefix(u, "http") {
			u = bingHost + u
		}
		return Wallpaper{URL: u, Detail: &Detail{
			Title:         img.Title,
			Copyright:     img.Copyright,
			CopyrightLink: img.CopyrightLink,
			Date:          img.EndDate,
		}}, nil
	}
	return Wallpaper{}, ErrBadFeed
}
