package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"concertlog/api/internal/config"
)

func TestNewRedisClient_DisabledWithoutAddr(t *testing.T) {
	client, err := NewRedisClient(context.Background(), config.RedisConfig{})
	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestLoginThrottle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Redis integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := NewRedisClient(ctx, config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	throttle := NewLoginThrottle(client, 2, time.Minute)
	email := "mike@example.com"

	ok, err := throttle.Allowed(ctx, email)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, throttle.RecordFailure(ctx, email))
	ok, _ = throttle.Allowed(ctx, email)
	assert.True(t, ok)

	require.NoError(t, throttle.RecordFailure(ctx, email))
	ok, _ = throttle.Allowed(ctx, email)
	assert.False(t, ok)

	ttl, err := client.TTL(ctx, loginKeyPrefix+email).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, throttle.Reset(ctx, email))
	ok, _ = throttle.Allowed(ctx, email)
	assert.True(t, ok)
}
