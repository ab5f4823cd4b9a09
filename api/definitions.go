package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/xraph/cachehook"
)

// DefinitionResponse describes one registered event definition.
type DefinitionResponse struct {
	Name        string          `json:"name"`
	Trigger     string          `json:"trigger"`
	Priority    int             `json:"priority"`
	ArgCount    int             `json:"arg_count"`
	Description string          `json:"description,omitempty"`
	Schema      json.RawMessage `json:"schema,omitempty"`
	Allowed     bool            `json:"allowed"`
}

// AllowEventsRequest adds names to the allow-list.
type AllowEventsRequest struct {
	Events []string `description:"Event names to allow" json:"events"`
}

func definitions(ctx context.Context, e *cachehook.Engine) []DefinitionResponse {
	allowed := e.Repository().AllowedEvents(ctx)
	all := e.Registry().All()

	out := make([]DefinitionResponse, 0, len(all))
	for _, name := range e.Registry().Names() {
		def := all[name]
		_, ok := allowed[name]
		out = append(out, DefinitionResponse{
			Name:        def.Name,
			Trigger:     def.Trigger,
			Priority:    def.Priority,
			ArgCount:    def.ArgCount,
			Description: def.Description,
			Schema:      def.Schema,
			Allowed:     ok,
		})
	}
	return out
}

func (h *Handler) listDefinitions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, definitions(r.Context(), h.engine))
}

func (h *Handler) listAllowedEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"events": h.engine.Repository().AllowedList()})
}

func (h *Handler) allowEvents(w http.ResponseWriter, r *http.Request) {
	var req AllowEventsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Events) == 0 {
		writeError(w, http.StatusBadRequest, "events is required")
		return
	}

	h.engine.Allow(req.Events...)
	writeJSON(w, http.StatusOK, map[string][]string{"events": h.engine.Repository().AllowedList()})
}
