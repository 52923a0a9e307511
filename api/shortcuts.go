package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"startpage/form"
	"startpage/icon"
	"startpage/shortcut"
	"startpage/store"
)

// View is the grid as the page renders it.
type View struct {
	Shortcuts []icon.Tile       `json:"shortcuts"`
	Settings  shortcut.Settings `json:"settings"`
}

func (h *handler) view(st shortcut.State) View {
	return View{Shortcuts: h.icons.Tiles(st), Settings: st.Settings}
}

func (h *handler) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.State())
}

func (h *handler) listShortcuts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.view(h.store.State()).Shortcuts)
}

func (h *handler) createShortcut(w http.ResponseWriter, r *http.Request) {
	var in form.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	res, err := form.Save(h.store, in, "")
	if err != nil {
		h.formError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *handler) updateShortcut(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var in form.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if _, ok := h.store.Shortcut(id); !ok {
		http.Error(w, shortcut.ErrNotFound.Error(), http.StatusNotFound)
		return
	}
	res, err := form.Save(h.store, in, id)
	if err != nil {
		h.formError(w, err)
		return
	}
	if sc, ok := h.store.Shortcut(id); ok {
		res.Shortcut = sc
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) formError(w http.ResponseWriter, err error) {
	var verr *form.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: verr.Error(), Fields: verr.Fields})
		return
	}
	h.log.Error().Err(err).Msg("save shortcut")
	http.Error(w, "failed to save shortcut", http.StatusInternalServerError)
}

// deleteShortcut always answers 204; unknown ids are a no-op.
func (h *handler) deleteShortcut(w http.ResponseWriter, r *http.Request) {
	form.Delete(h.store, chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) reorderShortcuts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.store.Reorder(req.IDs); err != nil {
		if errors.Is(err, store.ErrNotPermutation) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, "failed to reorder", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.view(h.store.State()).Shortcuts)
}

func (h *handler) refreshIcon(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.store.Shortcut(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, shortcut.ErrNotFound.Error(), http.StatusNotFound)
		return
	}
	h.icons.Invalidate(sc)
	writeJSON(w, http.StatusAccepted, h.icons.Status(sc.ID))
}

func (h *handler) patchSettings(w http.ResponseWriter, r *http.Request) {
	var p shortcut.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.store.UpdateSettings(p)
	writeJSON(w, http.StatusOK, h.store.State().Settings)
}

func (h *handler) patchWeather(w http.ResponseWriter, r *http.Request) {
	var p shortcut.WeatherPatch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.store.UpdateWeatherConfig(p)
	writeJSON(w, http.StatusOK, h.store.State().Settings.Weather)
}
