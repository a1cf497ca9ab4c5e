package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/straye-as/crm-api/internal/cache"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// These tests need a Redis server; set REDIS_ADDR (e.g. localhost:6379) to run them.
func redisAddr(t *testing.T) string {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	return addr
}

func TestRedisSummaryCache_OnlyStoresPositive(t *testing.T) {
	ctx := context.Background()
	client, err := cache.NewClient(ctx, redisAddr(t), os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	defer client.Close()

	c := cache.NewRedisSummaryCache(client, time.Minute)
	require.NoError(t, c.Evict(ctx))

	got, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Set(ctx, &domain.AdminSummary{HasAnyAdmin: false}))
	got, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Set(ctx, &domain.AdminSummary{HasAnyAdmin: true, AdminCount: 2}))
	got, err = c.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.HasAnyAdmin)
	assert.Equal(t, 2, got.AdminCount)

	require.NoError(t, c.Set(ctx, &domain.AdminSummary{HasAnyAdmin: false}))
	got, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisBroker_PublishListen(t *testing.T) {
	ctx := context.Background()
	client, err := cache.NewClient(ctx, redisAddr(t), os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	defer client.Close()

	b := cache.NewRedisBroker(client, "crm-test:"+t.Name()+":", zap.NewNop())
	events, release, err := b.Listen(ctx, "public/customers")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "public/customers"))
	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification received")
	}

	release()
	release()
}

func TestNewClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := cache.NewClient(ctx, "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
