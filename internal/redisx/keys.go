package redisx

import "time"

const (
	// Duration-config row cache: cert:times:{item_type}:{certificate_type}
	// -> JSON row. Deleted whenever the row is written.
	KeyStageTimes = "cert:times:%s:%s"

	// Order status cache: cert:order:status:{order_id} -> {"stage":"...","updated_at":"..."}
	KeyOrderStatus = "cert:order:status:%s"

	// Dedup for event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStageTimes  = 5 * time.Minute
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
