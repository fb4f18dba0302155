package resourcecore

import (
	"context"
	"time"
)

// Store is the shared snapshot persistence contract. Snapshot stores hold
// serialized cache state between client sessions; they are deliberately
// simpler than a general cache backend (no counters, no locks) because the
// resource engine only ever reads and writes whole snapshot blobs.
type Store interface {
	Driver() Driver
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Flush(ctx context.Context) error
}
