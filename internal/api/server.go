package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/shehryarbajwa/framebridge/internal/metrics"
	"github.com/shehryarbajwa/framebridge/internal/proxy"
	"github.com/shehryarbajwa/framebridge/internal/ratelimit"
)

// SetupRoutes configures all HTTP routes. rateLimiter may be nil.
func (h *Handler) SetupRoutes(relay *proxy.Server, rateLimiter *ratelimit.Limiter, m *metrics.Metrics) *mux.Router {
	// Frame names may carry an encoded slash
	r := mux.NewRouter().UseEncodedPath()

	r.Use(corsMiddleware)
	r.Use(MetricsMiddleware(m))

	api := r.PathPrefix("/v1").Subrouter()

	// Mutating endpoints are rate limited per window
	limited := api.PathPrefix("").Subrouter()
	if rateLimiter != nil {
		limited.Use(RateLimitMiddleware(rateLimiter, m))
	}

	limited.HandleFunc("/windows", h.RegisterWindow).Methods("POST", "OPTIONS")
	limited.HandleFunc("/windows/{id}", h.CloseWindow).Methods("DELETE", "OPTIONS")
	limited.HandleFunc("/windows/{id}/resize", h.ResizeWindow).Methods("POST", "OPTIONS")
	limited.HandleFunc("/windows/{id}/focus", h.FocusWindow).Methods("POST", "OPTIONS")

	// Lookups are polled by close watchers and not rate limited
	api.HandleFunc("/windows", h.ListWindows).Methods("GET")
	api.HandleFunc("/windows/{id}", h.GetWindow).Methods("GET")
	api.HandleFunc("/windows/{id}/frames/{name}", h.GetFrame).Methods("GET")

	// Relay
	api.HandleFunc("/windows/{id}/ws", func(w http.ResponseWriter, r *http.Request) {
		relay.HandleConnection(w, r, mux.Vars(r)["id"])
	}).Methods("GET")

	r.Handle("/metrics", m.Handler()).Methods("GET")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	return r
}
