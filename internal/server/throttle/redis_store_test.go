package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewRedisStore(client)
	require.NoError(t, err)
	return store, mr
}

func TestRedisStore_CountRespectsCutoff(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 4; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		require.NoError(t, store.Record(ctx, "w1", ts, base.Add(-time.Minute), time.Minute))
	}

	n, err := store.Count(ctx, "w1", base.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// A cutoff between the second and third entry hides the first two.
	n, err = store.Count(ctx, "w1", base.Add(1500*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRedisStore_CountMissingKeyIsZero(t *testing.T) {
	store, _ := newTestStore(t)

	n, err := store.Count(context.Background(), "nope", time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisStore_Oldest(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Truncate(time.Millisecond)

	_, ok, err := store.Oldest(ctx, "w1", base.Add(-time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	for i := 0; i < 3; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		require.NoError(t, store.Record(ctx, "w1", ts, base.Add(-time.Minute), time.Minute))
	}

	oldest, ok, err := store.Oldest(ctx, "w1", base.Add(-time.Minute))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, base.UnixNano(), oldest.UnixNano())

	// With the first entry behind the cutoff, the second becomes oldest.
	oldest, ok, err = store.Oldest(ctx, "w1", base.Add(500*time.Millisecond))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, base.Add(time.Second).UnixNano(), oldest.UnixNano())
}

func TestRedisStore_RecordEvictsBehindCutoff(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, store.Record(ctx, "w1", base, base.Add(-time.Minute), time.Minute))
	require.NoError(t, store.Record(ctx, "w1", base.Add(time.Second), base.Add(-time.Minute), time.Minute))

	// A record whose cutoff has moved past the older entries drops them.
	cutoff := base.Add(30 * time.Second)
	require.NoError(t, store.Record(ctx, "w1", base.Add(time.Minute), cutoff, time.Minute))

	members, err := mr.ZMembers("w1")
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestRedisStore_SimultaneousEntriesKeptApart(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	ts := time.Now()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, "w1", ts, ts.Add(-time.Minute), time.Minute))
	}

	members, err := mr.ZMembers("w1")
	require.NoError(t, err)
	assert.Len(t, members, 5)
}

func TestRedisStore_WindowExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Record(ctx, "w1", now, now.Add(-time.Minute), time.Minute))
	assert.True(t, mr.Exists("w1"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("w1"), "an idle window must expire on its own")
}
