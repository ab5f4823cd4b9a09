package api

import (
	"net/http"

	"github.com/xraph/cachehook/event"
	"github.com/xraph/cachehook/id"
)

func eventListOpts(w http.ResponseWriter, r *http.Request) (event.ListOpts, bool) {
	opts := event.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
		Type:   queryParam(r, "type"),
	}

	var err error
	if opts.From, err = queryTime(r, "from"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'from' time format (use RFC3339)")
		return opts, false
	}
	if opts.To, err = queryTime(r, "to"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'to' time format (use RFC3339)")
		return opts, false
	}
	return opts, true
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	opts, ok := eventListOpts(w, r)
	if !ok {
		return
	}

	events, err := h.engine.Store().ListEvents(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) listWebhookEvents(w http.ResponseWriter, r *http.Request) {
	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook ID")
		return
	}
	opts, ok := eventListOpts(w, r)
	if !ok {
		return
	}

	events, err := h.engine.Store().ListEventsByWebhook(r.Context(), whID, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) getEvent(w http.ResponseWriter, r *http.Request) {
	evtID, err := id.ParseEventID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event ID")
		return
	}

	evt, err := h.engine.Store().GetEvent(r.Context(), evtID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, evt)
}
