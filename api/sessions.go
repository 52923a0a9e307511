package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"startpage/session"
)

func (h *handler) listSessions(w http.ResponseWriter, r *http.Request) {
	list := h.manager.List()
	out := make([]session.Info, len(list))
	for i, s := range list {
		out[i] = s.Info()
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createSession(w http.ResponseWriter, r *http.Request) {
	s := h.manager.Create()
	writeJSON(w, http.StatusCreated, s.Info())
}

func (h *handler) closeSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.manager.Close(id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to close session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
