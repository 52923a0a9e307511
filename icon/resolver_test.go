package icon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"startpage/shortcut"
	"startpage/store"
)

var testSources = Sources{VectorBase: "vec/", FaviconBase: "fav"}

// fakeFetcher serves images by url and records every call.
type fakeFetcher struct {
	mu     sync.Mutex
	images map[string]Image
	pages  map[string]string
	calls  []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if img, ok := f.images[url]; ok {
		return img, nil
	}
	return Image{}, &LoadError{URL: url, Err: errors.New("HTTP 404")}
}

func (f *fakeFetcher) FetchPage(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "page:"+url)
	if p, ok := f.pages[url]; ok {
		return []byte(p), nil
	}
	return nil, &LoadError{URL: url, Err: errors.New("HTTP 404")}
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// blockingFetcher holds every fetch until its context ends.
type blockingFetcher struct{ started chan struct{} }

func (f *blockingFetcher) Fetch(ctx context.Context, url string) (Image, error) {
	select {
	case f.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return Image{}, ctx.Err()
}

type fakeWriter struct {
	mu    sync.Mutex
	icons map[string]string
	calls int
	// urls, when set, holds the current url of each shortcut.
	urls map[string]string
}

func (w *fakeWriter) SetIcon(id, url, icon string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.urls != nil && w.urls[id] != url {
		return false
	}
	if w.icons == nil {
		w.icons = map[string]string{}
	}
	w.calls++
	w.icons[id] = icon
	return true
}

func (w *fakeWriter) UpdateShortcut(id string, p shortcut.Patch) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.icons == nil {
		w.icons = map[string]string{}
	}
	w.calls++
	if p.CachedIcon != nil {
		w.icons[id] = *p.CachedIcon
	}
}

func (w *fakeWriter) icon(id string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.icons[id]
	return s, ok
}

func png(url string) Image {
	return Image{URL: url, ContentType: "image/png", Data: []byte("abc")}
}

const pngInline = "data:image/png;base64,YWJj"

func newTestResolver(t *testing.T, f Fetcher, w Writer, src Sources) *Resolver {
	t.Helper()
	r := NewResolver(f, w, Config{Sources: src, Timeout: time.Second}, zerolog.Nop())
	t.Cleanup(r.Close)
	return r
}

func waitPhase(t *testing.T, r *Resolver, id string, want Phase) Attempt {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a := r.Status(id); a.Phase == want {
			return a
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("%s never reached %s, last %+v", id, want, r.Status(id))
	return Attempt{}
}

func TestResolveCachedSkipsFetch(t *testing.T) {
	f := &fakeFetcher{}
	w := &fakeWriter{}
	r := newTestResolver(t, f, w, testSources)

	a := r.Resolve(context.Background(), shortcut.Shortcut{ID: "1", URL: "https://github.com", CachedIcon: "x"})
	if a.Phase != PhaseResolved || a.Icon != "x" {
		t.Fatalf("unexpected attempt %+v", a)
	}
	if f.count() != 0 || w.calls != 0 {
		t.Fatal("cached icon must not fetch or write")
	}
}

func TestResolveFallsBackToNextCandidate(t *testing.T) {
	f := &fakeFetcher{images: map[string]Image{"fav?domain=github.com&sz=128": png("fav")}}
	w := &fakeWriter{}
	r := newTestResolver(t, f, w, testSources)

	a := r.Resolve(context.Background(), shortcut.Shortcut{ID: "1", URL: "https://github.com"})
	if a.Phase != PhaseResolved || a.Index != 1 || a.Icon != pngInline {
		t.Fatalf("unexpected attempt %+v", a)
	}
	if f.calls[0] != "vec/github" {
		t.Fatalf("vector source should be tried first, got %v", f.calls)
	}
	if got, _ := w.icon("1"); got != pngInline {
		t.Fatalf("expected icon written, got %q", got)
	}
}

func TestResolveExhaustedWritesNothing(t *testing.T) {
	f := &fakeFetcher{}
	w := &fakeWriter{}
	r := newTestResolver(t, f, w, testSources)

	a := r.Resolve(context.Background(), shortcut.Shortcut{ID: "1", URL: "https://nothing.test"})
	if !a.Exhausted() || a.Index != 2 || a.Total != 2 {
		t.Fatalf("unexpected attempt %+v", a)
	}
	if w.calls != 0 {
		t.Fatal("exhausted chain must not write")
	}
	if f.count() != 2 {
		t.Fatalf("expected both candidates tried, got %v", f.calls)
	}
}

func TestResolveSiteDeclaredIcon(t *testing.T) {
	f := &fakeFetcher{
		pages:  map[string]string{"https://site.test/": `<link rel="icon" href="/i.png">`},
		images: map[string]Image{"https://site.test/i.png": png("https://site.test/i.png")},
	}
	src := testSources
	src.Discover = true
	r := newTestResolver(t, f, &fakeWriter{}, src)

	a := r.Resolve(context.Background(), shortcut.Shortcut{ID: "1", URL: "https://site.test/"})
	if a.Phase != PhaseResolved || a.Index != 2 {
		t.Fatalf("expected site candidate to resolve, got %+v", a)
	}
}

func TestStartResolvesInBackground(t *testing.T) {
	f := &fakeFetcher{images: map[string]Image{"vec/github": png("vec/github")}}
	w := &fakeWriter{}
	r := newTestResolver(t, f, w, testSources)

	var mu sync.Mutex
	var phases []Phase
	r.OnChange = func(id string, a Attempt) {
		mu.Lock()
		phases = append(phases, a.Phase)
		mu.Unlock()
	}

	r.Start(shortcut.Shortcut{ID: "1", Title: "GitHub", URL: "https://github.com"})
	a := waitPhase(t, r, "1", PhaseResolved)
	if a.Icon != pngInline {
		t.Fatalf("unexpected icon %q", a.Icon)
	}
	if got, _ := w.icon("1"); got != pngInline {
		t.Fatal("expected writeback")
	}

	mu.Lock()
	defer mu.Unlock()
	if phases[0] != PhaseResolving || phases[len(phases)-1] != PhaseResolved {
		t.Fatalf("unexpected transitions %v", phases)
	}
}

func TestStartSameURLOnlyOnce(t *testing.T) {
	f := &fakeFetcher{}
	r := newTestResolver(t, f, &fakeWriter{}, testSources)

	sc := shortcut.Shortcut{ID: "1", URL: "https://nothing.test"}
	r.Start(sc)
	waitPhase(t, r, "1", PhaseExhausted)
	r.Start(sc)
	if f.count() != 2 {
		t.Fatalf("exhausted url must not be retried, got %v", f.calls)
	}

	r.Refresh(sc)
	waitPhase(t, r, "1", PhaseExhausted)
	if f.count() != 4 {
		t.Fatalf("refresh should run the chain again, got %v", f.calls)
	}
}

func TestStartSkipsEditedURL(t *testing.T) {
	f := &fakeFetcher{images: map[string]Image{"vec/github": png("vec/github")}}
	w := &fakeWriter{urls: map[string]string{"1": "https://gitlab.com"}}
	r := newTestResolver(t, f, w, testSources)

	r.Start(shortcut.Shortcut{ID: "1", URL: "https://github.com"})
	a := waitPhase(t, r, "1", PhaseIdle)
	if a.Icon != "" {
		t.Fatalf("unexpected attempt %+v", a)
	}
	if _, ok := w.icon("1"); ok {
		t.Fatal("icon for the old url must not be written")
	}

	// The reconcile for the new url starts a fresh chain.
	f.mu.Lock()
	f.images["vec/gitlab"] = png("vec/gitlab")
	f.mu.Unlock()
	r.Start(shortcut.Shortcut{ID: "1", URL: "https://gitlab.com"})
	waitPhase(t, r, "1", PhaseResolved)
	if got, _ := w.icon("1"); got != pngInline {
		t.Fatalf("expected icon for the new url, got %q", got)
	}
}

func TestResolveSkipsEditedURL(t *testing.T) {
	f := &fakeFetcher{images: map[string]Image{"vec/github": png("vec/github")}}
	w := &fakeWriter{urls: map[string]string{"1": "https://gitlab.com"}}
	r := newTestResolver(t, f, w, testSources)

	a := r.Resolve(context.Background(), shortcut.Shortcut{ID: "1", URL: "https://github.com"})
	if a.Phase != PhaseIdle || w.calls != 0 {
		t.Fatalf("stale result must not be written, got %+v", a)
	}
	res, err := r.Sync(context.Background(), []shortcut.Shortcut{{ID: "1", URL: "https://github.com"}}, 1)
	if err != nil || res.Skipped != 1 || res.Resolved != 0 {
		t.Fatalf("unexpected sync result %+v %v", res, err)
	}
}

func TestForgetDiscardsResult(t *testing.T) {
	f := &blockingFetcher{started: make(chan struct{}, 1)}
	w := &fakeWriter{}
	r := NewResolver(f, w, Config{Sources: testSources}, zerolog.Nop())

	r.Start(shortcut.Shortcut{ID: "1", URL: "https://github.com"})
	<-f.started
	r.Forget("1")
	r.Close()

	if w.calls != 0 {
		t.Fatal("forgotten chain must not write")
	}
	if a := r.Status("1"); a.Phase != PhaseIdle {
		t.Fatalf("expected idle after forget, got %+v", a)
	}
}

func TestCloseStopsStart(t *testing.T) {
	f := &fakeFetcher{}
	r := NewResolver(f, &fakeWriter{}, Config{Sources: testSources}, zerolog.Nop())
	r.Close()
	r.Start(shortcut.Shortcut{ID: "1", URL: "https://github.com"})
	if r.Status("1").Phase != PhaseIdle || f.count() != 0 {
		t.Fatal("closed resolver must not start chains")
	}
}

func TestSync(t *testing.T) {
	f := &fakeFetcher{images: map[string]Image{"vec/github": png("vec/github")}}
	w := &fakeWriter{}
	r := newTestResolver(t, f, w, testSources)

	list := []shortcut.Shortcut{
		{ID: "1", URL: "https://github.com"},
		{ID: "2", URL: "https://nothing.test"},
		{ID: "3", URL: "https://google.com", CachedIcon: "x"},
	}
	res, err := r.Sync(context.Background(), list, 2)
	if err != nil {
		t.Fatal(err)
	}
	if res.Resolved != 1 || res.Exhausted != 1 || res.Skipped != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestWatchFollowsStore(t *testing.T) {
	st := store.New(store.NewMemoryBackend(), zerolog.Nop())
	f := &fakeFetcher{images: map[string]Image{
		"vec/google":   png("g"),
		"vec/youtube":  png("y"),
		"vec/github":   png("h"),
		"vec/bilibili": png("b"),
		"vec/go":       png("go"),
	}}
	r := newTestResolver(t, f, st, testSources)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Watch(ctx, st)

	waitIcon := func(id string) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if sc, ok := st.Shortcut(id); ok && sc.CachedIcon != "" {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Fatalf("shortcut %s never got an icon", id)
	}
	for _, id := range []string{"1", "2", "3", "4"} {
		waitIcon(id)
	}

	sc := st.AddShortcut(shortcut.Input{Title: "Go", URL: "https://go.dev"})
	waitIcon(sc.ID)

	before := f.count()
	st.UpdateShortcut("1", shortcut.ClearIcon())
	waitIcon("1")
	if f.count() <= before {
		t.Fatal("cleared icon should trigger a new resolution")
	}

	st.RemoveShortcut(sc.ID)
	deadline := time.Now().Add(2 * time.Second)
	for r.Status(sc.ID).Phase != PhaseIdle {
		if time.Now().After(deadline) {
			t.Fatal("removed shortcut should be forgotten")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDisplay(t *testing.T) {
	sc := shortcut.Shortcut{ID: "1", Title: "github", URL: "https://github.com"}

	tile := Display(sc, Attempt{Phase: PhaseResolving})
	if tile.Icon != "" || tile.Glyph != "G" {
		t.Fatalf("resolving tile should show the glyph, got %+v", tile)
	}

	sc.CachedIcon = "data:x"
	tile = Display(sc, Attempt{Phase: PhaseIdle})
	if tile.Icon != "data:x" || tile.Resolution.Phase != PhaseResolved {
		t.Fatalf("cached icon should display, got %+v", tile)
	}
}

func TestTiles(t *testing.T) {
	r := newTestResolver(t, &fakeFetcher{}, &fakeWriter{}, testSources)
	tiles := r.Tiles(shortcut.Default())
	if len(tiles) != 4 || tiles[1].Glyph != "Y" || tiles[1].Resolution.Phase != PhaseIdle {
		t.Fatalf("unexpected tiles %+v", tiles)
	}
}
