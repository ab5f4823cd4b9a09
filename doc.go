// Package cachehook turns bursts of cache-purge signals into consolidated,
// enriched webhook deliveries.
//
// cachehook is a library. Trigger sources (HTTP ingestion, Kafka, Redis
// pub/sub or direct calls) report purged cache keys; the engine classifies
// each key, resolves the object behind it, buffers observations by object
// type and action for a short window, and dispatches one event per group to
// the webhooks subscribed to it. Dispatched events are persisted and
// delivered with HMAC signatures, retries and a dead letter queue.
//
// Key features:
//   - Consolidation of duplicate keys within a buffer window
//   - Opaque-ID decoding and object snapshots (posts, terms, users)
//   - Explicit allow-list of dispatchable event names
//   - CEL filter expressions and JSON Schema payload validation
//   - Composable store pattern (Postgres, SQLite, MongoDB, Redis, Memory)
//   - Exponential backoff retries, per-webhook rate limits and a DLQ
//
// Quick start:
//
//	e, err := cachehook.New(
//	    cachehook.WithStore(memory.New()),
//	    cachehook.WithAllowedEvents("post_updated", "post_deleted"),
//	    cachehook.WithContentSource(content.NewREST("https://example.com/wp-json")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	e.Start(ctx)
//	defer e.Stop(ctx)
//
//	e.Webhooks().Create(ctx, webhook.Input{
//	    Name:  "search index",
//	    Event: "post_updated",
//	    URL:   "https://search.example.com/hooks/cms",
//	})
//
//	e.Purge(ctx, "cG9zdDox", "post_UPDATE", "/graphql")
package cachehook
