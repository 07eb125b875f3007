package locks

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veronewra/openverse/internal/common"
)

func setupService(t *testing.T) (*RedisService, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc, err := NewRedisService(client)
	require.NoError(t, err)
	return svc, mr
}

func TestAcquireRelease(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	lease, err := svc.Acquire(ctx, "throttle:client-1", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, lease)
	assert.Equal(t, "throttle:client-1", lease.Resource)

	require.NoError(t, svc.Release(ctx, lease))

	// Released resource can be acquired again immediately.
	lease2, err := svc.Acquire(ctx, "throttle:client-1", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, svc.Release(ctx, lease2))
}

func TestAcquire_HeldResource_ReturnsBusy(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	lease, err := svc.Acquire(ctx, "r1", 5*time.Second)
	require.NoError(t, err)
	defer func() { _ = svc.Release(ctx, lease) }()

	_, err = svc.Acquire(ctx, "r1", 5*time.Second)
	assert.ErrorIs(t, err, common.ErrLockBusy)
}

func TestAcquire_DistinctResourcesIndependent(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	a, err := svc.Acquire(ctx, "r1", 5*time.Second)
	require.NoError(t, err)
	b, err := svc.Acquire(ctx, "r2", 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, svc.Release(ctx, a))
	require.NoError(t, svc.Release(ctx, b))
}

func TestLease_ExpiresByTTL(t *testing.T) {
	svc, mr := setupService(t)
	ctx := context.Background()

	_, err := svc.Acquire(ctx, "r1", time.Second)
	require.NoError(t, err)

	// A crashed holder never releases; the TTL frees the resource.
	mr.FastForward(2 * time.Second)

	lease, err := svc.Acquire(ctx, "r1", time.Second)
	require.NoError(t, err)
	require.NoError(t, svc.Release(ctx, lease))
}

func TestRelease_NilLease(t *testing.T) {
	svc, _ := setupService(t)
	assert.NoError(t, svc.Release(context.Background(), nil))
}
