// Package locks provides short-lived mutual-exclusion leases over named
// resources, shared by all workers. It is used where a read-then-write
// sequence against the counter store must be atomic across processes.
package locks

import (
	"context"
	"time"
)

// Lease is a time-bounded exclusive claim on a named resource. A holder that
// crashes loses the lease automatically once its TTL elapses.
type Lease struct {
	Resource string

	release func(ctx context.Context) error
}

// Service hands out leases. Acquire is fail-fast: when the resource is held
// by someone else it returns common.ErrLockBusy instead of queueing.
type Service interface {
	Acquire(ctx context.Context, resource string, ttl time.Duration) (*Lease, error)
	Release(ctx context.Context, lease *Lease) error
}
