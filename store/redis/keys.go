package redis

// Key prefixes for primary entity storage.
const (
	prefixWebhook  = "cachehook:wh:"
	prefixEvent    = "cachehook:evt:"
	prefixDelivery = "cachehook:del:"
	prefixDLQ      = "cachehook:dlq:"
)

// Key prefixes for sorted set indexes.
const (
	zWebhookAll   = "cachehook:z:wh:all"
	zWebhookEvent = "cachehook:z:wh:event:" // + event name
	zEventAll     = "cachehook:z:evt:all"
	zEventWebhook = "cachehook:z:evt:wh:" // + webhook ID
	zDeliveryWH   = "cachehook:z:del:wh:"  // + webhook ID
	zDeliveryEvt  = "cachehook:z:del:evt:" // + event ID
	zDeliveryPend = "cachehook:z:del:pending"
	zDLQAll       = "cachehook:z:dlq:all"
	zDLQWebhook   = "cachehook:z:dlq:wh:" // + webhook ID
)

// entityKey returns the primary key for an entity.
func entityKey(prefix, id string) string {
	return prefix + id
}
