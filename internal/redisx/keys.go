package redisx

import "time"

const (
	// Snapshot order terminal: order_snapshot:{order_id} -> id, status, total, items (tanpa data produk)
	KeyOrderSnapshot = "order_snapshot:%d"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrderSnapshot = 5 * time.Minute
	TTLDedup         = 48 * time.Hour
)
