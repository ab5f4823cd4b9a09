package api

import (
	"net/http"
	"time"

	"github.com/xraph/cachehook/dlq"
	"github.com/xraph/cachehook/id"
)

func (h *Handler) listDLQ(w http.ResponseWriter, r *http.Request) {
	opts := dlq.ListOpts{
		Offset:    queryInt(r, "offset", 0),
		Limit:     queryInt(r, "limit", 50),
		EventType: queryParam(r, "event"),
	}

	if raw := queryParam(r, "webhook_id"); raw != "" {
		whID, err := id.ParseWebhookID(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid webhook ID")
			return
		}
		opts.WebhookID = &whID
	}

	var err error
	if opts.From, err = queryTime(r, "from"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'from' time format (use RFC3339)")
		return
	}
	if opts.To, err = queryTime(r, "to"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'to' time format (use RFC3339)")
		return
	}

	entries, err := h.engine.DLQ().List(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) getDLQ(w http.ResponseWriter, r *http.Request) {
	dlqID, err := id.ParseDLQID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid DLQ ID")
		return
	}

	entry, err := h.engine.DLQ().Get(r.Context(), dlqID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) replayDLQ(w http.ResponseWriter, r *http.Request) {
	dlqID, err := id.ParseDLQID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid DLQ ID")
		return
	}

	if err := h.engine.DLQ().Replay(r.Context(), dlqID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type replayBulkRequest struct {
	From string `json:"from"` // RFC3339
	To   string `json:"to"`   // RFC3339
}

func (h *Handler) replayBulkDLQ(w http.ResponseWriter, r *http.Request) {
	var req replayBulkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	from, err := time.Parse(time.RFC3339, req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'from' time format (use RFC3339)")
		return
	}
	to, err := time.Parse(time.RFC3339, req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'to' time format (use RFC3339)")
		return
	}

	count, err := h.engine.DLQ().ReplayBulk(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"replayed": count})
}

func (h *Handler) purgeDLQ(w http.ResponseWriter, r *http.Request) {
	before, err := queryTime(r, "before")
	if err != nil || before == nil {
		writeError(w, http.StatusBadRequest, "'before' query parameter is required (RFC3339)")
		return
	}

	count, err := h.engine.DLQ().Purge(r.Context(), *before)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"purged": count})
}
