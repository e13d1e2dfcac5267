package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/lodestar-hq/lodestar-go/pkg/credstore"
	"github.com/lodestar-hq/lodestar-go/pkg/credstore/drivers/redis"
	"github.com/lodestar-hq/lodestar-go/pkg/credstore/storetest"
)

func openStore(t *testing.T) *redis.Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewWithClient(client, "")
}

func TestRedisConformance(t *testing.T) {
	t.Parallel()

	storetest.Run(t, func(t *testing.T) credstore.Store {
		return openStore(t)
	})
}

func TestRedisSharedHashKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	// Two stores over the same key observe each other's writes.
	a := redis.NewWithClient(client, "team:creds")
	b := redis.NewWithClient(client, "team:creds")

	require.NoError(t, a.Set(ctx, credstore.KindAccess, "T1"))

	access, err := b.Get(ctx, credstore.KindAccess)
	require.NoError(t, err)
	require.Equal(t, "T1", access)

	require.NoError(t, b.Clear(ctx))
	access, err = a.Get(ctx, credstore.KindAccess)
	require.NoError(t, err)
	require.Empty(t, access)
}

func TestRedisTTLExpiresPair(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mr := miniredis.RunT(t)

	s := redis.New(redis.Options{
		Addr: mr.Addr(),
		Key:  "ttl:creds",
		TTL:  time.Minute,
	})
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Set(ctx, credstore.KindAccess, "T1"))

	mr.FastForward(2 * time.Minute)

	access, err := s.Get(ctx, credstore.KindAccess)
	require.NoError(t, err)
	require.Empty(t, access)
}
