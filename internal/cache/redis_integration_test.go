//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *Redis {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		termCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = container.Terminate(termCtx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	r, err := ConnectRedis(ctx, fmt.Sprintf("%s:%s", host, port.Port()), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRedis_RoundTripWithTTL(t *testing.T) {
	r := startRedis(t)
	ctx := context.Background()

	_, ok, err := r.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	want := data("abc")
	require.NoError(t, r.Put(ctx, "abc", want, 30*time.Minute))

	got, ok, err := r.Get(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.VideoID, got.VideoID)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Transcript, got.Transcript)
	assert.True(t, want.FetchedAt.Equal(got.FetchedAt))

	ttl, err := r.client.TTL(ctx, r.key("abc")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 29*time.Minute)
	assert.LessOrEqual(t, ttl, 30*time.Minute)
}

func TestRedis_DefaultTTLWhenUnset(t *testing.T) {
	r := startRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, "abc", data("abc"), 0))
	ttl, err := r.client.TTL(ctx, r.key("abc")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, DefaultTTL-time.Minute)
	assert.LessOrEqual(t, ttl, DefaultTTL)
}

func TestRedis_EntryExpires(t *testing.T) {
	r := startRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, "abc", data("abc"), time.Second))
	require.Eventually(t, func() bool {
		_, ok, err := r.Get(ctx, "abc")
		return err == nil && !ok
	}, 5*time.Second, 100*time.Millisecond)
}

func TestRedis_CorruptEntryIsAMiss(t *testing.T) {
	r := startRedis(t)
	ctx := context.Background()

	require.NoError(t, r.client.Set(ctx, r.key("abc"), "not json", time.Minute).Err())
	_, ok, err := r.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	// a refetch overwrites it
	require.NoError(t, r.Put(ctx, "abc", data("abc"), time.Minute))
	_, ok, err = r.Get(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
}
