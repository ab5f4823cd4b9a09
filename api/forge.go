package api

import (
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/cachehook"
	"github.com/xraph/cachehook/delivery"
	"github.com/xraph/cachehook/dlq"
	"github.com/xraph/cachehook/event"
	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/webhook"
)

// ForgeAPI wires all Forge-style HTTP handlers together.
type ForgeAPI struct {
	engine *cachehook.Engine
	log    forge.Logger
}

// NewForgeAPI creates a ForgeAPI over e.
func NewForgeAPI(e *cachehook.Engine, log forge.Logger) *ForgeAPI {
	return &ForgeAPI{engine: e, log: log}
}

// RegisterRoutes registers all admin API routes into the given Forge router
// with full OpenAPI metadata.
func (a *ForgeAPI) RegisterRoutes(router forge.Router) {
	a.registerWebhookRoutes(router)
	a.registerEventRoutes(router)
	a.registerDeliveryRoutes(router)
	a.registerDLQRoutes(router)
	a.registerIngestRoutes(router)
	a.registerStatsRoutes(router)
}

// ---------------------------------------------------------------------------
// Webhook routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerWebhookRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("webhooks"))

	if err := g.POST("/webhooks", a.createWebhook,
		forge.WithSummary("Create webhook"),
		forge.WithDescription("Subscribes a delivery URL to one event name."),
		forge.WithOperationID("createWebhook"),
		forge.WithRequestSchema(CreateWebhookForgeRequest{}),
		forge.WithCreatedResponse(webhook.Webhook{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register createWebhook route", forge.Error(err))
	}

	if err := g.GET("/webhooks", a.listWebhooks,
		forge.WithSummary("List webhooks"),
		forge.WithDescription("Returns a paginated list of webhooks."),
		forge.WithOperationID("listWebhooks"),
		forge.WithRequestSchema(ListWebhooksForgeRequest{}),
		forge.WithListResponse(webhook.Webhook{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listWebhooks route", forge.Error(err))
	}

	if err := g.GET("/webhooks/:webhookId", a.getWebhook,
		forge.WithSummary("Get webhook"),
		forge.WithDescription("Returns details of a specific webhook."),
		forge.WithOperationID("getWebhook"),
		forge.WithResponseSchema(http.StatusOK, "Webhook details", webhook.Webhook{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register getWebhook route", forge.Error(err))
	}

	if err := g.PUT("/webhooks/:webhookId", a.updateWebhook,
		forge.WithSummary("Update webhook"),
		forge.WithDescription("Updates mutable fields of a webhook."),
		forge.WithOperationID("updateWebhook"),
		forge.WithRequestSchema(UpdateWebhookForgeRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated webhook", webhook.Webhook{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register updateWebhook route", forge.Error(err))
	}

	if err := g.DELETE("/webhooks/:webhookId", a.deleteWebhook,
		forge.WithSummary("Delete webhook"),
		forge.WithDescription("Permanently deletes a webhook."),
		forge.WithOperationID("deleteWebhook"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register deleteWebhook route", forge.Error(err))
	}

	if err := g.PATCH("/webhooks/:webhookId/enable", a.enableWebhook,
		forge.WithSummary("Enable webhook"),
		forge.WithDescription("Re-enables a disabled webhook."),
		forge.WithOperationID("enableWebhook"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register enableWebhook route", forge.Error(err))
	}

	if err := g.PATCH("/webhooks/:webhookId/disable", a.disableWebhook,
		forge.WithSummary("Disable webhook"),
		forge.WithDescription("Disables a webhook; it stops receiving events."),
		forge.WithOperationID("disableWebhook"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register disableWebhook route", forge.Error(err))
	}

	if err := g.POST("/webhooks/:webhookId/rotate-secret", a.rotateSecret,
		forge.WithSummary("Rotate secret"),
		forge.WithDescription("Generates a new signing secret for the webhook."),
		forge.WithOperationID("rotateWebhookSecret"),
		forge.WithResponseSchema(http.StatusOK, "New signing secret", SecretForgeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register rotateSecret route", forge.Error(err))
	}
}

func (a *ForgeAPI) createWebhook(ctx forge.Context, req *CreateWebhookForgeRequest) (*webhookResponse, error) {
	wh, err := a.engine.Webhooks().Create(ctx.Context(), webhook.Input{
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
		return nil, mapError(err)
	}

	err = ctx.JSON(http.StatusCreated, webhookResponse{Webhook: wh, Secret: wh.Secret})
	if err != nil {
		return nil, mapError(err)
	}

	//nolint:nilnil // response already written via ctx.JSON.
	return nil, nil
}

func (a *ForgeAPI) listWebhooks(ctx forge.Context, req *ListWebhooksForgeRequest) ([]*webhook.Webhook, error) {
	limit := req.Limit
	if limit == 0 {
		limit = 50
	}

	opts := webhook.ListOpts{
		Offset: req.Offset,
		Limit:  limit,
		Event:  req.Event,
	}
	if req.Enabled == "true" || req.Enabled == "false" {
		enabled := req.Enabled == "true"
		opts.Enabled = &enabled
	}

	whs, err := a.engine.Webhooks().List(ctx.Context(), opts)
	if err != nil {
		return nil, mapError(err)
	}

	return whs, nil
}

func (a *ForgeAPI) getWebhook(ctx forge.Context, req *WebhookPathForgeRequest) (*webhook.Webhook, error) {
	whID, err := id.ParseWebhookID(req.WebhookID)
	if err != nil {
		return nil, forge.BadRequest("invalid webhook ID")
	}

	wh, err := a.engine.Webhooks().Get(ctx.Context(), whID)
	if err != nil {
		return nil, mapError(err)
	}

	return wh, nil
}

func (a *ForgeAPI) updateWebhook(ctx forge.Context, req *UpdateWebhookForgeRequest) (*webhook.Webhook, error) {
	whID, err := id.ParseWebhookID(req.WebhookID)
	if err != nil {
		return nil, forge.BadRequest("invalid webhook ID")
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

	wh, err := a.engine.Webhooks().Update(ctx.Context(), whID, in)
	if err != nil {
		return nil, mapError(err)
	}

	return wh, nil
}

func (a *ForgeAPI) deleteWebhook(ctx forge.Context, req *WebhookPathForgeRequest) (*webhook.Webhook, error) {
	whID, err := id.ParseWebhookID(req.WebhookID)
	if err != nil {
		return nil, forge.BadRequest("invalid webhook ID")
	}

	if err := a.engine.Webhooks().Delete(ctx.Context(), whID); err != nil {
		return nil, mapError(err)
	}

	if err := ctx.NoContent(http.StatusNoContent); err != nil {
		return nil, mapError(err)
	}

	//nolint:nilnil // response already written via ctx.NoContent.
	return nil, nil
}

func (a *ForgeAPI) enableWebhook(ctx forge.Context, req *WebhookPathForgeRequest) (*webhook.Webhook, error) {
	return a.setEnabled(ctx, req, true)
}

func (a *ForgeAPI) disableWebhook(ctx forge.Context, req *WebhookPathForgeRequest) (*webhook.Webhook, error) {
	return a.setEnabled(ctx, req, false)
}

func (a *ForgeAPI) setEnabled(ctx forge.Context, req *WebhookPathForgeRequest, enabled bool) (*webhook.Webhook, error) {
	whID, err := id.ParseWebhookID(req.WebhookID)
	if err != nil {
		return nil, forge.BadRequest("invalid webhook ID")
	}

	if err := a.engine.Webhooks().SetEnabled(ctx.Context(), whID, enabled); err != nil {
		return nil, mapError(err)
	}

	if err := ctx.NoContent(http.StatusNoContent); err != nil {
		return nil, mapError(err)
	}

	//nolint:nilnil // response already written via ctx.NoContent.
	return nil, nil
}

func (a *ForgeAPI) rotateSecret(ctx forge.Context, req *WebhookPathForgeRequest) (*SecretForgeResponse, error) {
	whID, err := id.ParseWebhookID(req.WebhookID)
	if err != nil {
		return nil, forge.BadRequest("invalid webhook ID")
	}

	secret, err := a.engine.Webhooks().RotateSecret(ctx.Context(), whID)
	if err != nil {
		return nil, mapError(err)
	}

	return &SecretForgeResponse{Secret: secret}, nil
}

// ---------------------------------------------------------------------------
// Event routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerEventRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("events"))

	if err := g.GET("/events", a.listEvents,
		forge.WithSummary("List events"),
		forge.WithDescription("Returns dispatched events, newest first."),
		forge.WithOperationID("listEvents"),
		forge.WithRequestSchema(ListEventsForgeRequest{}),
		forge.WithListResponse(event.Event{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listEvents route", forge.Error(err))
	}

	if err := g.GET("/events/:eventId", a.getEvent,
		forge.WithSummary("Get event"),
		forge.WithDescription("Returns details of a specific event."),
		forge.WithOperationID("getEvent"),
		forge.WithResponseSchema(http.StatusOK, "Event details", event.Event{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register getEvent route", forge.Error(err))
	}

	if err := g.GET("/definitions", a.listDefinitions,
		forge.WithSummary("List event definitions"),
		forge.WithDescription("Returns registered event definitions and whether each is allowed."),
		forge.WithOperationID("listDefinitions"),
		forge.WithListResponse(DefinitionResponse{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listDefinitions route", forge.Error(err))
	}

	if err := g.GET("/allowed-events", a.listAllowedEvents,
		forge.WithSummary("List allowed events"),
		forge.WithDescription("Returns the dispatch allow-list."),
		forge.WithOperationID("listAllowedEvents"),
		forge.WithResponseSchema(http.StatusOK, "Allow-list", AllowedEventsForgeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listAllowedEvents route", forge.Error(err))
	}

	if err := g.POST("/allowed-events", a.allowEvents,
		forge.WithSummary("Allow events"),
		forge.WithDescription("Adds event names to the dispatch allow-list."),
		forge.WithOperationID("allowEvents"),
		forge.WithRequestSchema(AllowEventsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Allow-list", AllowedEventsForgeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register allowEvents route", forge.Error(err))
	}
}

func (a *ForgeAPI) listEvents(ctx forge.Context, req *ListEventsForgeRequest) ([]*event.Event, error) {
	limit := req.Limit
	if limit == 0 {
		limit = 50
	}

	events, err := a.engine.Store().ListEvents(ctx.Context(), event.ListOpts{
		Offset: req.Offset,
		Limit:  limit,
		Type:   req.Type,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return events, nil
}

func (a *ForgeAPI) getEvent(ctx forge.Context, req *GetEventForgeRequest) (*event.Event, error) {
	evtID, err := id.ParseEventID(req.EventID)
	if err != nil {
		return nil, forge.BadRequest("invalid event ID")
	}

	evt, err := a.engine.Store().GetEvent(ctx.Context(), evtID)
	if err != nil {
		return nil, mapError(err)
	}

	return evt, nil
}

func (a *ForgeAPI) listDefinitions(ctx forge.Context, _ *EmptyForgeRequest) ([]DefinitionResponse, error) {
	return definitions(ctx.Context(), a.engine), nil
}

func (a *ForgeAPI) listAllowedEvents(_ forge.Context, _ *EmptyForgeRequest) (*AllowedEventsForgeResponse, error) {
	return &AllowedEventsForgeResponse{Events: a.engine.Repository().AllowedList()}, nil
}

func (a *ForgeAPI) allowEvents(_ forge.Context, req *AllowEventsRequest) (*AllowedEventsForgeResponse, error) {
	if len(req.Events) == 0 {
		return nil, forge.BadRequest("events is required")
	}
	a.engine.Allow(req.Events...)
	return &AllowedEventsForgeResponse{Events: a.engine.Repository().AllowedList()}, nil
}

// ---------------------------------------------------------------------------
// Delivery routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerDeliveryRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("deliveries"))

	if err := g.GET("/webhooks/:webhookId/deliveries", a.listDeliveries,
		forge.WithSummary("List deliveries"),
		forge.WithDescription("Returns deliveries for a specific webhook."),
		forge.WithOperationID("listDeliveries"),
		forge.WithRequestSchema(ListDeliveriesForgeRequest{}),
		forge.WithListResponse(delivery.Delivery{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listDeliveries route", forge.Error(err))
	}
}

func (a *ForgeAPI) listDeliveries(ctx forge.Context, req *ListDeliveriesForgeRequest) ([]*delivery.Delivery, error) {
	whID, err := id.ParseWebhookID(req.WebhookID)
	if err != nil {
		return nil, forge.BadRequest("invalid webhook ID")
	}

	limit := req.Limit
	if limit == 0 {
		limit = 50
	}

	opts := delivery.ListOpts{
		Offset: req.Offset,
		Limit:  limit,
	}
	if req.State != "" {
		state := delivery.State(req.State)
		opts.State = &state
	}

	deliveries, err := a.engine.Store().ListByWebhook(ctx.Context(), whID, opts)
	if err != nil {
		return nil, mapError(err)
	}

	return deliveries, nil
}

// ---------------------------------------------------------------------------
// DLQ routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerDLQRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("dlq"))

	if err := g.GET("/dlq", a.listDLQ,
		forge.WithSummary("List DLQ entries"),
		forge.WithDescription("Returns dead letter queue entries, optionally filtered by webhook or event."),
		forge.WithOperationID("listDLQ"),
		forge.WithRequestSchema(ListDLQForgeRequest{}),
		forge.WithListResponse(dlq.Entry{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listDLQ route", forge.Error(err))
	}

	if err := g.POST("/dlq/:dlqId/replay", a.replayDLQ,
		forge.WithSummary("Replay DLQ entry"),
		forge.WithDescription("Re-enqueues a single DLQ entry for delivery."),
		forge.WithOperationID("replayDLQ"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register replayDLQ route", forge.Error(err))
	}

	if err := g.POST("/dlq/replay", a.replayBulkDLQ,
		forge.WithSummary("Bulk replay DLQ"),
		forge.WithDescription("Re-enqueues DLQ entries within a time range."),
		forge.WithOperationID("replayBulkDLQ"),
		forge.WithRequestSchema(ReplayBulkDLQForgeRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Replay result", ReplayBulkForgeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register replayBulkDLQ route", forge.Error(err))
	}
}

func (a *ForgeAPI) listDLQ(ctx forge.Context, req *ListDLQForgeRequest) ([]*dlq.Entry, error) {
	limit := req.Limit
	if limit == 0 {
		limit = 50
	}

	opts := dlq.ListOpts{
		Offset:    req.Offset,
		Limit:     limit,
		EventType: req.Event,
	}
	if req.WebhookID != "" {
		whID, err := id.ParseWebhookID(req.WebhookID)
		if err != nil {
			return nil, forge.BadRequest("invalid webhook ID")
		}
		opts.WebhookID = &whID
	}

	entries, err := a.engine.DLQ().List(ctx.Context(), opts)
	if err != nil {
		return nil, mapError(err)
	}

	return entries, nil
}

func (a *ForgeAPI) replayDLQ(ctx forge.Context, req *ReplayDLQForgeRequest) (*dlq.Entry, error) {
	dlqID, err := id.ParseDLQID(req.DLQID)
	if err != nil {
		return nil, forge.BadRequest("invalid DLQ ID")
	}

	if err := a.engine.DLQ().Replay(ctx.Context(), dlqID); err != nil {
		return nil, mapError(err)
	}

	if err := ctx.NoContent(http.StatusNoContent); err != nil {
		return nil, mapError(err)
	}

	//nolint:nilnil // response already written via ctx.NoContent.
	return nil, nil
}

func (a *ForgeAPI) replayBulkDLQ(ctx forge.Context, req *ReplayBulkDLQForgeRequest) (*ReplayBulkForgeResponse, error) {
	from, err := time.Parse(time.RFC3339, req.From)
	if err != nil {
		return nil, forge.BadRequest("invalid 'from' time format (use RFC3339)")
	}
	to, err := time.Parse(time.RFC3339, req.To)
	if err != nil {
		return nil, forge.BadRequest("invalid 'to' time format (use RFC3339)")
	}

	count, err := a.engine.DLQ().ReplayBulk(ctx.Context(), from, to)
	if err != nil {
		return nil, mapError(err)
	}

	return &ReplayBulkForgeResponse{Replayed: count}, nil
}

// ---------------------------------------------------------------------------
// Purge ingestion routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerIngestRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("ingest"))

	if err := g.POST("/purge", a.purge,
		forge.WithSummary("Report purged key"),
		forge.WithDescription("Buffers one purged cache key for consolidation."),
		forge.WithOperationID("purge"),
		forge.WithRequestSchema(PurgeRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register purge route", forge.Error(err))
	}

	if err := g.POST("/purge/nodes", a.purgeNodes,
		forge.WithSummary("Report purged nodes"),
		forge.WithDescription("Dispatches a bulk node purge immediately."),
		forge.WithOperationID("purgeNodes"),
		forge.WithRequestSchema(PurgeNodesRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register purgeNodes route", forge.Error(err))
	}
}

func (a *ForgeAPI) purge(ctx forge.Context, req *PurgeRequest) (*EmptyForgeRequest, error) {
	if req.Key == "" {
		return nil, forge.BadRequest("key is required")
	}
	a.engine.Purge(ctx.Context(), req.Key, req.Descriptor, req.SourceEndpoint)

	if err := ctx.NoContent(http.StatusAccepted); err != nil {
		return nil, mapError(err)
	}

	//nolint:nilnil // response already written via ctx.NoContent.
	return nil, nil
}

func (a *ForgeAPI) purgeNodes(ctx forge.Context, req *PurgeNodesRequest) (*EmptyForgeRequest, error) {
	if req.Key == "" {
		return nil, forge.BadRequest("key is required")
	}
	a.engine.PurgeNodes(ctx.Context(), req.Key, req.Nodes)

	if err := ctx.NoContent(http.StatusAccepted); err != nil {
		return nil, mapError(err)
	}

	//nolint:nilnil // response already written via ctx.NoContent.
	return nil, nil
}

// ---------------------------------------------------------------------------
// Stats routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerStatsRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("stats"))

	if err := g.GET("/stats", a.getStats,
		forge.WithSummary("System statistics"),
		forge.WithDescription("Returns pending deliveries, DLQ size and dispatcher counters."),
		forge.WithOperationID("getStats"),
		forge.WithResponseSchema(http.StatusOK, "System statistics", StatsResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register getStats route", forge.Error(err))
	}
}

func (a *ForgeAPI) getStats(ctx forge.Context, _ *EmptyForgeRequest) (*StatsResponse, error) {
	stats, err := engineStats(ctx.Context(), a.engine)
	if err != nil {
		return nil, mapError(err)
	}
	return stats, nil
}
