package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/shehryarbajwa/framebridge/pkg/models"
)

// GetFrame handles GET /v1/windows/{id}/frames/{name}
func (h *Handler) GetFrame(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	name, err := url.PathUnescape(vars["name"])
	if err != nil {
		http.Error(w, "Invalid frame name", http.StatusBadRequest)
		return
	}

	info, err := h.sessions.Frame(vars["id"], name)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// ResizeWindow handles POST /v1/windows/{id}/resize
func (h *Handler) ResizeWindow(w http.ResponseWriter, r *http.Request) {
	var req models.ResizeWindowRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	info, err := h.sessions.Resize(mux.Vars(r)["id"], req.Width, req.Height)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// FocusWindow handles POST /v1/windows/{id}/focus
func (h *Handler) FocusWindow(w http.ResponseWriter, r *http.Request) {
	info, err := h.sessions.Focus(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}
