package api

import (
	"net/http"
)

// PurgeRequest reports one purged cache key.
type PurgeRequest struct {
	Key            string `description:"Purged cache key"                       json:"key"`
	Descriptor     string `description:"Change descriptor, e.g. post_UPDATE"    json:"descriptor"`
	SourceEndpoint string `description:"Endpoint whose cache was purged"        json:"source_endpoint,omitempty"`
}

// PurgeNodesRequest reports a bulk node purge.
type PurgeNodesRequest struct {
	Key   string   `description:"Purged cache key"     json:"key"`
	Nodes []string `description:"Purged node IDs"      json:"nodes"`
}

func (h *Handler) purge(w http.ResponseWriter, r *http.Request) {
	var req PurgeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	h.engine.Purge(r.Context(), req.Key, req.Descriptor, req.SourceEndpoint)
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) purgeNodes(w http.ResponseWriter, r *http.Request) {
	var req PurgeNodesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	h.engine.PurgeNodes(r.Context(), req.Key, req.Nodes)
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) flush(w http.ResponseWriter, r *http.Request) {
	h.engine.Flush(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
