package throttle

import (
	"context"
	"time"
)

// Store is the shared, TTL-capable window store behind the engine. It owns
// no business logic: keys, cutoffs and TTLs are decided by the caller.
//
// Implementations must be safe for concurrent use from many workers.
type Store interface {
	// Count returns how many recorded entries have timestamps at or after
	// since. A missing key counts as zero.
	Count(ctx context.Context, key string, since time.Time) (int, error)

	// Oldest returns the earliest entry at or after since. ok is false when
	// the window holds no such entry.
	Oldest(ctx context.Context, key string, since time.Time) (ts time.Time, ok bool, err error)

	// Record appends an entry at ts, evicts entries older than since, and
	// resets the key's TTL so an idle window expires on its own.
	Record(ctx context.Context, key string, ts time.Time, since time.Time, ttl time.Duration) error
}
