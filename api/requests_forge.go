package api

// ---------------------------------------------------------------------------
// Webhook requests
// ---------------------------------------------------------------------------

// CreateWebhookForgeRequest binds the body for POST /webhooks.
type CreateWebhookForgeRequest struct {
	Name      string            `description:"Human-readable label"                json:"name,omitempty"`
	Event     string            `description:"Subscribed event name"               json:"event"`
	URL       string            `description:"Webhook delivery URL"                json:"url"`
	Secret    string            `description:"Signing secret (generated if empty)" json:"secret,omitempty"`
	Headers   map[string]string `description:"Custom HTTP headers"                 json:"headers,omitempty"`
	Filter    *string           `description:"CEL filter over event and payload"   json:"filter,omitempty"`
	RateLimit int               `description:"Deliveries per second limit"         json:"rate_limit,omitempty"`
	Metadata  map[string]string `description:"Arbitrary key-value metadata"        json:"metadata,omitempty"`
}

// ListWebhooksForgeRequest binds query parameters for GET /webhooks.
type ListWebhooksForgeRequest struct {
	Event   string `description:"Filter by event name"       query:"event"`
	Enabled string `description:"Filter by enabled state"    query:"enabled"`
	Offset  int    `description:"Pagination offset"          query:"offset"`
	Limit   int    `description:"Page size (default 50)"     query:"limit"`
}

// WebhookPathForgeRequest binds the path for single-webhook routes.
type WebhookPathForgeRequest struct {
	WebhookID string `description:"Webhook identifier" path:"webhookId"`
}

// UpdateWebhookForgeRequest binds path + body for PUT /webhooks/:webhookId.
type UpdateWebhookForgeRequest struct {
	WebhookID string            `description:"Webhook identifier"                path:"webhookId"`
	Name      string            `description:"Human-readable label"              json:"name,omitempty"`
	Event     string            `description:"Subscribed event name"             json:"event,omitempty"`
	URL       string            `description:"Webhook delivery URL"              json:"url,omitempty"`
	Headers   map[string]string `description:"Custom HTTP headers"               json:"headers,omitempty"`
	Filter    *string           `description:"CEL filter over event and payload" json:"filter,omitempty"`
	RateLimit *int              `description:"Deliveries per second limit"       json:"rate_limit,omitempty"`
	Metadata  map[string]string `description:"Arbitrary key-value metadata"      json:"metadata,omitempty"`
}

// ---------------------------------------------------------------------------
// Event requests
// ---------------------------------------------------------------------------

// ListEventsForgeRequest binds query parameters for GET /events.
type ListEventsForgeRequest struct {
	Type   string `description:"Filter by event name"    query:"type"`
	Offset int    `description:"Pagination offset"       query:"offset"`
	Limit  int    `description:"Page size (default 50)"  query:"limit"`
}

// GetEventForgeRequest binds the path for GET /events/:eventId.
type GetEventForgeRequest struct {
	EventID string `description:"Event identifier" path:"eventId"`
}

// ---------------------------------------------------------------------------
// Delivery requests
// ---------------------------------------------------------------------------

// ListDeliveriesForgeRequest binds path + query for GET /webhooks/:webhookId/deliveries.
type ListDeliveriesForgeRequest struct {
	WebhookID string `description:"Webhook identifier"     path:"webhookId"`
	State     string `description:"Filter by state"        query:"state"`
	Offset    int    `description:"Pagination offset"      query:"offset"`
	Limit     int    `description:"Page size (default 50)" query:"limit"`
}

// ---------------------------------------------------------------------------
// DLQ requests
// ---------------------------------------------------------------------------

// ListDLQForgeRequest binds query parameters for GET /dlq.
type ListDLQForgeRequest struct {
	WebhookID string `description:"Filter by webhook"      query:"webhook_id"`
	Event     string `description:"Filter by event name"   query:"event"`
	Offset    int    `description:"Pagination offset"      query:"offset"`
	Limit     int    `description:"Page size (default 50)" query:"limit"`
}

// ReplayDLQForgeRequest binds the path for POST /dlq/:dlqId/replay.
type ReplayDLQForgeRequest struct {
	DLQID string `description:"DLQ entry identifier" path:"dlqId"`
}

// ReplayBulkDLQForgeRequest binds the body for POST /dlq/replay.
type ReplayBulkDLQForgeRequest struct {
	From string `description:"Start time (RFC3339)" json:"from"`
	To   string `description:"End time (RFC3339)"   json:"to"`
}

// ---------------------------------------------------------------------------
// Misc
// ---------------------------------------------------------------------------

// EmptyForgeRequest is used by routes without parameters.
type EmptyForgeRequest struct{}

// SecretForgeResponse is the response for POST /webhooks/:webhookId/rotate-secret.
type SecretForgeResponse struct {
	Secret string `json:"secret"`
}

// ReplayBulkForgeResponse is the response for POST /dlq/replay.
type ReplayBulkForgeResponse struct {
	Replayed int64 `json:"replayed"`
}

// AllowedEventsForgeResponse lists the dispatch allow-list.
type AllowedEventsForgeResponse struct {
	Events []string `json:"events"`
}
