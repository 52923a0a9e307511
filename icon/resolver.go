package icon

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"startpage/shortcut"
)

// Phase is where a shortcut is in its resolution.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseResolving Phase = "resolving"
	PhaseResolved  Phase = "resolved"
	PhaseExhausted Phase = "exhausted"
)

// Attempt is the transient, per-shortcut resolution state. Only the final
// icon is persisted (as the shortcut's cachedIcon).
type Attempt struct {
	Phase Phase  `json:"phase"`
	URL   string `json:"url"`
	// Index is the candidate currently being tried.
	Index int    `json:"index"`
	Total int    `json:"total"`
	Icon  string `json:"icon,omitempty"`
}

// Exhausted reports whether every candidate failed.
func (a Attempt) Exhausted() bool { return a.Phase == PhaseExhausted }

// Writer receives the resolved icon. SetIcon must only write while the
// shortcut still points at url, and report whether it did.
type Writer interface {
	UpdateShortcut(id string, p shortcut.Patch)
	SetIcon(id, url, icon string) bool
}

// Source is the store view Watch reconciles against.
type Source interface {
	State() shortcut.State
	Subscribe() (<-chan shortcut.State, func())
}

// run is one in-flight chain. gen is the liveness token checked before the
// writeback.
type run struct {
	gen    uint64
	url    string
	cancel context.CancelFunc
}

// Resolver walks candidate chains, one goroutine per shortcut.
type Resolver struct {
	fetcher Fetcher
	writer  Writer
	sources Sources
	timeout time.Duration
	log     zerolog.Logger
	base    context.Context
	stop    context.CancelFunc

	mu     sync.Mutex
	gen    uint64
	runs   map[string]*run
	status map[string]Attempt
	wg     sync.WaitGroup
	closed bool

	// OnChange, when set, is called after every status transition with the
	// resolver lock held; it must not call back into the Resolver. Set it
	// before starting any chain.
	OnChange func(id string, a Attempt)
}

// Config tunes a Resolver.
type Config struct {
	Sources Sources
	// Timeout bounds each candidate attempt; 0 disables it.
	Timeout time.Duration
}

// NewResolver returns a Resolver that writes results through w.
func NewResolver(f Fetcher, w Writer, cfg Config, log zerolog.Logger) *Resolver {
	base, stop := context.WithCancel(context.Background())
	return &Resolver{
		base:    base,
		stop:    stop,
		fetcher: f,
		writer:  w,
		sources: cfg.Sources,
		timeout: cfg.Timeout,
		log:     log.With().Str("component", "icon").Logger(),
		runs:    make(map[string]*run),
		status:  make(map[string]Attempt),
	}
}

// Status returns the current attempt for id.
func (r *Resolver) Status(id string) Attempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.status[id]
	if !ok {
		return Attempt{Phase: PhaseIdle}
	}
	return a
}

// Start begins resolving sc in the background unless it already has a
// cached icon or this url has already been tried.
func (r *Resolver) Start(sc shortcut.Shortcut) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	cur, known := r.status[sc.ID]
	if sc.CachedIcon != "" {
		if known && cur.Phase == PhaseResolved && cur.URL == sc.URL && cur.Icon == sc.CachedIcon {
			return
		}
		r.stopLocked(sc.ID)
		r.setLocked(sc.ID, Attempt{Phase: PhaseResolved, URL: sc.URL, Icon: sc.CachedIcon})
		return
	}
	if known && cur.URL == sc.URL && cur.Phase != PhaseIdle {
		return
	}
	r.startLocked(sc)
}

// Refresh restarts the full chain for sc regardless of previous results.
func (r *Resolver) Refresh(sc shortcut.Shortcut) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	sc.CachedIcon = ""
	r.startLocked(sc)
}

// Invalidate drops the cached icon of sc and restarts its chain.
func (r *Resolver) Invalidate(sc shortcut.Shortcut) {
	r.writer.UpdateShortcut(sc.ID, shortcut.ClearIcon())
	r.Refresh(sc)
}

// Forget cancels any chain for id and drops its status. Results of a
// cancelled chain are discarded.
func (r *Resolver) Forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked(id)
	delete(r.status, id)
}

// Close cancels every chain and waits for their goroutines to exit. No
// writeback happens after Close returns. Chains started by Start run until
// Close, independent of any request context.
func (r *Resolver) Close() {
	r.mu.Lock()
	r.closed = true
	for id := range r.runs {
		r.stopLocked(id)
	}
	r.mu.Unlock()
	r.stop()
	r.wg.Wait()
}

func (r *Resolver) stopLocked(id string) {
	if cur, ok := r.runs[id]; ok {
		cur.cancel()
		delete(r.runs, id)
	}
}

func (r *Resolver) startLocked(sc shortcut.Shortcut) {
	r.stopLocked(sc.ID)
	r.gen++
	runCtx, cancel := context.WithCancel(r.base)
	cur := &run{gen: r.gen, url: sc.URL, cancel: cancel}
	r.runs[sc.ID] = cur

	cands := r.sources.Candidates(sc.URL)
	r.setLocked(sc.ID, Attempt{Phase: PhaseResolving, URL: sc.URL, Total: len(cands)})

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		icon, ok := r.walk(runCtx, sc.ID, sc.URL, cands, cur)
		r.finish(sc.ID, sc.URL, cur, icon, ok, len(cands))
	}()
}

// finish applies the outcome of a chain if it is still the live one.
func (r *Resolver) finish(id, url string, cur *run, icon string, ok bool, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if live, exists := r.runs[id]; !exists || live.gen != cur.gen {
		return
	}
	delete(r.runs, id)

	if !ok {
		r.setLocked(id, Attempt{Phase: PhaseExhausted, URL: url, Index: total, Total: total})
		r.log.Debug().Str("id", id).Str("url", url).Msg("no icon source worked, using glyph")
		return
	}
	if !r.writer.SetIcon(id, url, icon) {
		// The url was edited while the chain ran; the next reconcile starts over.
		r.setLocked(id, Attempt{Phase: PhaseIdle, URL: url})
		return
	}
	r.setLocked(id, Attempt{Phase: PhaseResolved, URL: url, Total: total, Icon: icon})
}

// walk tries each candidate in order and returns the persistable icon of the
// first one that loads. A cancelled context stops the chain.
func (r *Resolver) walk(ctx context.Context, id, url string, cands []Candidate, cur *run) (string, bool) {
	for i, c := range cands {
		if ctx.Err() != nil {
			return "", false
		}
		r.progress(id, url, cur, i, len(cands))

		img, err := r.load(ctx, c)
		if err != nil {
			r.log.Debug().Err(err).Str("id", id).Str("source", c.Source).Msg("icon candidate failed")
			continue
		}
		return Persistable(img), true
	}
	return "", false
}

func (r *Resolver) progress(id, url string, cur *run, index, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if live, ok := r.runs[id]; !ok || live.gen != cur.gen {
		return
	}
	r.setLocked(id, Attempt{Phase: PhaseResolving, URL: url, Index: index, Total: total})
}

func (r *Resolver) load(ctx context.Context, c Candidate) (Image, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	target := c.URL
	if c.Source == SourceSite {
		pf, ok := r.fetcher.(PageFetcher)
		if !ok {
			return Image{}, &LoadError{URL: c.URL, Err: errors.New("fetcher cannot load pages")}
		}
		page, err := pf.FetchPage(ctx, c.URL)
		if err != nil {
			return Image{}, err
		}
		target, err = DeclaredIcon(page, c.URL)
		if err != nil {
			return Image{}, &LoadError{URL: c.URL, Err: err}
		}
	}
	return r.fetcher.Fetch(ctx, target)
}

func (r *Resolver) setLocked(id string, a Attempt) {
	r.status[id] = a
	if r.OnChange != nil {
		r.OnChange(id, a)
	}
}

// Resolve runs the chain for sc synchronously and writes the result. A
// shortcut with a cached icon is returned untouched without any fetch.
func (r *Resolver) Resolve(ctx context.Context, sc shortcut.Shortcut) Attempt {
	if sc.CachedIcon != "" {
		return Attempt{Phase: PhaseResolved, URL: sc.URL, Icon: sc.CachedIcon}
	}
	cands := r.sources.Candidates(sc.URL)
	for i, c := range cands {
		if ctx.Err() != nil {
			break
		}
		img, err := r.load(ctx, c)
		if err != nil {
			r.log.Debug().Err(err).Str("id", sc.ID).Str("source", c.Source).Msg("icon candidate failed")
			continue
		}
		icon := Persistable(img)
		if !r.writer.SetIcon(sc.ID, sc.URL, icon) {
			return Attempt{Phase: PhaseIdle, URL: sc.URL, Index: i, Total: len(cands)}
		}
		return Attempt{Phase: PhaseResolved, URL: sc.URL, Index: i, Total: len(cands), Icon: icon}
	}
	return Attempt{Phase: PhaseExhausted, URL: sc.URL, Index: len(cands), Total: len(cands)}
}

// SyncResult counts the outcomes of Sync.
type SyncResult struct {
	Resolved  int
	Exhausted int
	Skipped   int
}

// Sync resolves every shortcut without a cached icon, at most limit at a
// time, and waits for all of them.
func (r *Resolver) Sync(ctx context.Context, list []shortcut.Shortcut, limit int) (SyncResult, error) {
	var (
		mu  sync.Mutex
		res SyncResult
	)
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, sc := range list {
		if sc.CachedIcon != "" {
			res.Skipped++
			continue
		}
		sc := sc
		g.Go(func() error {
			a := r.Resolve(gctx, sc)
			mu.Lock()
			defer mu.Unlock()
			switch a.Phase {
			case PhaseResolved:
				res.Resolved++
			case PhaseExhausted:
				res.Exhausted++
			default:
				res.Skipped++
			}
			return gctx.Err()
		})
	}
	err := g.Wait()
	return res, err
}

// Watch keeps resolution in step with the store until ctx is done: new
// shortcuts and changed urls start a chain, a cached icon that gets cleared
// restarts it, removed shortcuts are forgotten.
func (r *Resolver) Watch(ctx context.Context, src Source) {
	updates, unsubscribe := src.Subscribe()
	defer unsubscribe()

	seen := make(map[string]string)
	r.reconcile(src.State(), seen)
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			r.reconcile(st, seen)
		}
	}
}

// reconcile compares st with the icons seen in the previous snapshot.
func (r *Resolver) reconcile(st shortcut.State, seen map[string]string) {
	live := make(map[string]bool, len(st.Shortcuts))
	for _, sc := range st.Shortcuts {
		live[sc.ID] = true
		prev, had := seen[sc.ID]
		seen[sc.ID] = sc.CachedIcon
		if had && prev != "" && sc.CachedIcon == "" && r.Status(sc.ID).Phase != PhaseResolving {
			r.Refresh(sc)
			continue
		}
		r.Start(sc)
	}

	for id := range seen {
		if !live[id] {
			delete(seen, id)
			r.Forget(id)
		}
	}
}

// Tile is the presentation of one shortcut.
type Tile struct {
	shortcut.Shortcut
	// Icon is the image to show; empty when Glyph should be shown instead.
	Icon       string  `json:"icon,omitempty"`
	Glyph      string  `json:"glyph"`
	Resolution Attempt `json:"resolution"`
}

// Tiles derives presentation for every shortcut in st.
func (r *Resolver) Tiles(st shortcut.State) []Tile {
	out := make([]Tile, len(st.Shortcuts))
	for i, sc := range st.Shortcuts {
		out[i] = Display(sc, r.Status(sc.ID))
	}
	return out
}

// Display picks what a tile shows: the cached icon when present, otherwise
// the letter glyph while resolving or once exhausted.
func Display(sc shortcut.Shortcut, a Attempt) Tile {
	t := Tile{Shortcut: sc, Glyph: Glyph(sc.Title), Resolution: a}
	if sc.CachedIcon != "" {
		t.Icon = sc.CachedIcon
		t.Resolution.Phase = PhaseResolved
	}
	return t
}
