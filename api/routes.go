package api

import (
	"encoding/json"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"startpage/form"
	"startpage/icon"
	"startpage/session"
	"startpage/store"
	"startpage/wallpaper"
)

// Deps are the services the routes are served from. Wallpaper may be nil.
type Deps struct {
	Store     *store.Store
	Icons     *icon.Resolver
	Sessions  *session.Manager
	Wallpaper *wallpaper.Service
	Log       zerolog.Logger
}

func RegisterRoutes(d Deps, staticFS fs.FS) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	h := &handler{
		store:     d.Store,
		icons:     d.Icons,
		manager:   d.Sessions,
		wallpaper: d.Wallpaper,
		log:       d.Log.With().Str("component", "api").Logger(),
	}

	r.Get("/healthz", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.getState)

		r.Get("/shortcuts", h.listShortcuts)
		r.Post("/shortcuts", h.createShortcut)
		r.Put("/shortcuts/order", h.reorderShortcuts)
		r.Put("/shortcuts/{id}", h.updateShortcut)
		r.Delete("/shortcuts/{id}", h.deleteShortcut)
		r.Post("/shortcuts/{id}/refresh-icon", h.refreshIcon)

		r.Patch("/settings", h.patchSettings)
		r.Patch("/settings/weather", h.patchWeather)

		r.Get("/sessions", h.listSessions)
		r.Post("/sessions", h.createSession)
		r.Delete("/sessions/{id}", h.closeSession)
		r.Get("/sessions/{id}/ws", h.handleWS)

		r.Get("/wallpaper", h.getWallpaper)
	})

	// Static sub-FS: strip the "static/" prefix present in the embed.FS. In
	// dev mode staticFS is already rooted at static/, so probe index.html.
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		staticSub = staticFS
	} else if _, statErr := fs.Stat(staticSub, "index.html"); statErr != nil {
		staticSub = staticFS
	}

	// Serving index.html through http.FileServer redirects to "./", so read
	// it directly.
	r.Get("/", serveFile(staticSub, "index.html"))

	fileServer := http.FileServer(http.FS(staticSub))
	r.Get("/css/*", fileServer.ServeHTTP)
	r.Get("/js/*", fileServer.ServeHTTP)

	return r
}

// serveFile returns a handler that reads a single file from fsys and sends it.
func serveFile(fsys fs.FS, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(content)
	}
}

type handler struct {
	store     *store.Store
	icons     *icon.Resolver
	manager   *session.Manager
	wallpaper *wallpaper.Service
	log       zerolog.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  string           `json:"error"`
	Fields []form.FieldError `json:"fields,omitempty"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok", "sessions": len(h.manager.List())}
	if err := h.store.LastPersistError(); err != nil {
		body["status"] = "degraded"
		body["persistError"] = err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *handler) getWallpaper(w http.ResponseWriter, r *http.Request) {
	if h.wallpaper == nil {
		http.Error(w, "wallpaper disabled", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, h.wallpaper.Today(r.Context()))
}
