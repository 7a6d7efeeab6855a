package kv

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisClientTest(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), Config{
		URL:        "redis://" + mr.Addr(),
		MaxRetries: 1,
		PoolSize:   4,
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestNewRedisClient_Success(t *testing.T) {
	client, _ := setupRedisClientTest(t)

	require.NotNil(t, client.Client())
	assert.NoError(t, client.Ping(context.Background()))
	assert.NotNil(t, client.PoolStats())
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), Config{URL: "not a url"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis URL")
}

func TestNewRedisClient_ConnectionFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(context.Background(), Config{URL: "redis://" + addr})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}

func TestRedisClient_PingAfterServerStops(t *testing.T) {
	client, mr := setupRedisClientTest(t)

	require.NoError(t, client.Ping(context.Background()))
	mr.Close()
	assert.Error(t, client.Ping(context.Background()))
}
