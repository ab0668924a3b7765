// Package api serves the hub's REST interface.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/framebridge/internal/session"
	"github.com/shehryarbajwa/framebridge/pkg/models"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	sessions *session.Manager
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(sessions *session.Manager, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sessions: sessions,
		logger:   logger,
	}
}

// RegisterWindow handles POST /v1/windows
func (h *Handler) RegisterWindow(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterWindowRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	info, err := h.sessions.Register(req)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, info)
}

// GetWindow handles GET /v1/windows/{id}
func (h *Handler) GetWindow(w http.ResponseWriter, r *http.Request) {
	info, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// ListWindows handles GET /v1/windows
func (h *Handler) ListWindows(w http.ResponseWriter, r *http.Request) {
	status := models.WindowStatus(r.URL.Query().Get("status"))

	writeJSON(w, http.StatusOK, h.sessions.List(status))
}

// CloseWindow handles DELETE /v1/windows/{id}
func (h *Handler) CloseWindow(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(mux.Vars(r)["id"], session.CauseRequested); err != nil {
		h.fail(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// fail maps manager errors to status codes
func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrWindowNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrWindowClosed):
		status = http.StatusGone
	case errors.Is(err, session.ErrLimitReached):
		status = http.StatusTooManyRequests
	case errors.Is(err, session.ErrInvalidRequest):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err))
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
