//go:build integration

package cart

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to ping redis: %v", err)
	}

	cleanup := func() {
		if err := rdb.Close(); err != nil {
			t.Logf("Failed to close redis client: %v", err)
		}
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return rdb, cleanup
}

func TestRedisCountCache(t *testing.T) {
	rdb, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	cache := NewRedisCountCache(rdb, time.Minute)

	_, ok, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, 1, 6))
	n, ok, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 6, n)

	ttl, err := rdb.TTL(ctx, countKey(1)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, cache.Invalidate(ctx, 1))
	_, ok, err = cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCounterSharedAcrossInstances(t *testing.T) {
	rdb, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	src := &countSource{n: 4}
	busA, busB := NewBus(), NewBus()
	a := NewCounter(NewRedisCountCache(rdb, time.Minute), src, busA)
	b := NewCounter(NewRedisCountCache(rdb, time.Minute), src, busB)

	n, err := a.Count(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = b.Count(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 1, src.calls, "second instance reads the shared entry")

	src.n = 1
	busA.Publish(CartChanged{UserID: 8})
	n, err = b.Count(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
