package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	"github.com/veronewra/openverse/internal/common"
)

func wrapBusy(err error) error {
	return fmt.Errorf("%w: %w", common.ErrLockBusy, err)
}

const keyPrefix = "lock:"

// RedisService implements Service on redsync. With a single Redis node this
// is a plain SET NX EX lock; the redsync machinery also covers multi-node
// Redlock setups if more clients are supplied.
type RedisService struct {
	rs *redsync.Redsync
}

func NewRedisService(client redis.UniversalClient) (*RedisService, error) {
	if client == nil {
		return nil, errors.New("nil redis client")
	}
	return &RedisService{rs: redsync.New(goredis.NewPool(client))}, nil
}

func (s *RedisService) Acquire(ctx context.Context, resource string, ttl time.Duration) (*Lease, error) {

	mutex := s.rs.NewMutex(keyPrefix+resource,
		redsync.WithExpiry(ttl),
		redsync.WithTries(1),
	)

	if err := mutex.TryLockContext(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// ErrTaken is a struct type and needs errors.As.
		var taken *redsync.ErrTaken
		if errors.As(err, &taken) || errors.Is(err, redsync.ErrFailed) {
			return nil, wrapBusy(err)
		}
		return nil, fmt.Errorf("error acquiring lock %q: %w", resource, err)
	}

	return &Lease{
		Resource: resource,
		release: func(ctx context.Context) error {
			_, err := mutex.UnlockContext(ctx)
			return err
		},
	}, nil
}

// Release returns the lease. Releasing a lease that already expired is not
// an error worth surfacing; the TTL already did the job.
func (s *RedisService) Release(ctx context.Context, lease *Lease) error {
	if lease == nil || lease.release == nil {
		return nil
	}
	if err := lease.release(ctx); err != nil {
		if errors.Is(err, redsync.ErrLockAlreadyExpired) {
			return nil
		}
		return fmt.Errorf("error releasing lock %q: %w", lease.Resource, err)
	}
	return nil
}
