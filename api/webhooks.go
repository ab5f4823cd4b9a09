package api

import (
	"net/http"

	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/webhook"
)

type createWebhookRequest struct {
	Name      string            `json:"name"`
	Event     string            `json:"event"`
	URL       string            `json:"url"`
	Secret    string            `json:"secret,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Filter    *string           `json:"filter,omitempty"`
	RateLimit int               `json:"rate_limit,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type updateWebhookRequest struct {
	Name      string            `json:"name,omitempty"`
	Event     string            `json:"event,omitempty"`
	URL       string            `json:"url,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Filter    *string           `json:"filter,omitempty"`
	RateLimit *int              `json:"rate_limit,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// webhookResponse exposes the secret, which Webhook never serializes. It is
// only returned on creation.
type webhookResponse struct {
	*webhook.Webhook
	Secret string `json:"secret"`
}

func (h *Handler) createWebhook(w http.ResponseWriter, r *http.Request) {
	var req createWebhookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wh, err := h.engine.Webhooks().Create(r.Context(), webhook.Input{
		Name:      req.Name,
		Event:     req.Event,
		URL:       req.URL,
		Secret:    req.Secret,
		Headers:   req.Headers,
		Filter:    req.Filter,
		RateLimit: req.RateLimit,
		Metadata:  req.Metadata,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, webhookResponse{Webhook: wh, Secret: wh.Secret})
}

func (h *Handler) listWebhooks(w http.ResponseWriter, r *http.Request) {
	opts := webhook.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
		Event:  queryParam(r, "event"),
	}
	switch queryParam(r, "enabled") {
	case "true":
		enabled := true
		opts.Enabled = &enabled
	case "false":
		enabled := false
		opts.Enabled = &enabled
	}

	whs, err := h.engine.Webhooks().List(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, whs)
}

func (h *Handler) getWebhook(w http.ResponseWriter, r *http.Request) {
	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook ID")
		return
	}

	wh, err := h.engine.Webhooks().Get(r.Context(), whID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, wh)
}

func (h *Handler) updateWebhook(w http.ResponseWriter, r *http.Request) {
	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook ID")
		return
	}

	var req updateWebhookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := webhook.Input{
		Name:      req.Name,
		Event:     req.Event,
		URL:       req.URL,
		Headers:   req.Headers,
		Filter:    req.Filter,
		RateLimit: -1,
		Metadata:  req.Metadata,
	}
	if req.RateLimit != nil {
		in.RateLimit = max(*req.RateLimit, 0)
	}

	wh, err := h.engine.Webhooks().Update(r.Context(), whID, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, wh)
}

func (h *Handler) deleteWebhook(w http.ResponseWriter, r *http.Request) {
	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook ID")
		return
	}

	if err := h.engine.Webhooks().Delete(r.Context(), whID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) enableWebhook(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, true)
}

func (h *Handler) disableWebhook(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, false)
}

func (h *Handler) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook ID")
		return
	}

	if err := h.engine.Webhooks().SetEnabled(r.Context(), whID, enabled); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) rotateSecret(w http.ResponseWriter, r *http.Request) {
	whID, err := id.ParseWebhookID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook ID")
		return
	}

	secret, err := h.engine.Webhooks().RotateSecret(r.Context(), whID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"secret": secret})
}
