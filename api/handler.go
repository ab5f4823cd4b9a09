// Package api provides the admin HTTP API for cachehook: webhook
// management, event and delivery inspection, DLQ replay and purge ingestion.
//
// Routes are relative; mount the handler under a prefix with http.StripPrefix.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/xraph/cachehook"
	"github.com/xraph/cachehook/webhook"
)

// Handler is the root HTTP handler for the admin API.
type Handler struct {
	engine *cachehook.Engine
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewHandler creates an admin API handler over e.
func NewHandler(e *cachehook.Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		engine: e,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	// Webhooks
	h.mux.HandleFunc("POST /webhooks", h.createWebhook)
	h.mux.HandleFunc("GET /webhooks", h.listWebhooks)
	h.mux.HandleFunc("GET /webhooks/{id}", h.getWebhook)
	h.mux.HandleFunc("PUT /webhooks/{id}", h.updateWebhook)
	h.mux.HandleFunc("DELETE /webhooks/{id}", h.deleteWebhook)
	h.mux.HandleFunc("PATCH /webhooks/{id}/enable", h.enableWebhook)
	h.mux.HandleFunc("PATCH /webhooks/{id}/disable", h.disableWebhook)
	h.mux.HandleFunc("POST /webhooks/{id}/rotate-secret", h.rotateSecret)

	// Events
	h.mux.HandleFunc("GET /events", h.listEvents)
	h.mux.HandleFunc("GET /events/{id}", h.getEvent)
	h.mux.HandleFunc("GET /webhooks/{id}/events", h.listWebhookEvents)

	// Deliveries
	h.mux.HandleFunc("GET /webhooks/{id}/deliveries", h.listDeliveries)
	h.mux.HandleFunc("GET /events/{id}/deliveries", h.listEventDeliveries)

	// Definitions and allow-list
	h.mux.HandleFunc("GET /definitions", h.listDefinitions)
	h.mux.HandleFunc("GET /allowed-events", h.listAllowedEvents)
	h.mux.HandleFunc("POST /allowed-events", h.allowEvents)

	// DLQ
	h.mux.HandleFunc("GET /dlq", h.listDLQ)
	h.mux.HandleFunc("GET /dlq/{id}", h.getDLQ)
	h.mux.HandleFunc("POST /dlq/{id}/replay", h.replayDLQ)
	h.mux.HandleFunc("POST /dlq/replay", h.replayBulkDLQ)
	h.mux.HandleFunc("DELETE /dlq", h.purgeDLQ)

	// Purge ingestion
	h.mux.HandleFunc("POST /purge", h.purge)
	h.mux.HandleFunc("POST /purge/nodes", h.purgeNodes)
	h.mux.HandleFunc("POST /flush", h.flush)

	// Stats
	h.mux.HandleFunc("GET /stats", h.getStats)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.withMiddleware(h.mux).ServeHTTP(w, r)
}

func (h *Handler) withMiddleware(next http.Handler) http.Handler {
	return h.panicRecovery(h.logging(next))
}

func (h *Handler) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		h.logger.Info("api request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (h *Handler) panicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("panic recovered",
					"error", rec,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// JSON helpers.

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best effort
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps sentinel and validation errors to a status code.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *webhook.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, err.Error())
	case cachehook.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cachehook.ErrDuplicateDefinition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryParam returns a query parameter value, or empty string if not present.
func queryParam(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}

// queryInt returns a non-negative query parameter as int or a default value.
func queryInt(r *http.Request, key string, defaultVal int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}

// queryTime parses an RFC3339 query parameter. Absent values are nil.
func queryTime(r *http.Request, key string) (*time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
