package api

import (
	"net/http"

	"github.com/xraph/cachehook/delivery"
	"github.com/xraph/cachehook/id"
)

func (h *Handler) listDeliveries(w http.ResponseWriter, r *http.Request) {
	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook ID")
		return
	}

	opts := delivery.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
	}

	if stateStr := queryParam(r, "state"); stateStr != "" {
		state := delivery.State(stateStr)
		opts.State = &state
	}

	deliveries, err := h.engine.Store().ListByWebhook(r.Context(), whID, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deliveries)
}

func (h *Handler) listEventDeliveries(w http.ResponseWriter, r *http.Request) {
	evtID, err := id.ParseEventID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event ID")
		return
	}

	deliveries, err := h.engine.Store().ListByEvent(r.Context(), evtID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deliveries)
}
