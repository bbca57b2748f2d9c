package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/digimall/admin-gateway/internal/infrastructure/auth"
	"github.com/digimall/admin-gateway/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRevocationStore_Revoke(t *testing.T) {
	store := auth.NewInMemoryRevocationStore()
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "session-1", time.Hour))

	revoked, err := store.IsRevoked(ctx, "session-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "session-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestInMemoryRevocationStore_Expiry(t *testing.T) {
	store := auth.NewInMemoryRevocationStore()
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "short", time.Millisecond))
	time.Sleep(10 * time.Millisecond)

	revoked, err := store.IsRevoked(ctx, "short")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestInMemoryRevocationStore_NonPositiveTTL(t *testing.T) {
	store := auth.NewInMemoryRevocationStore()
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "already-expired", 0))

	revoked, err := store.IsRevoked(ctx, "already-expired")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestInMemoryRevocationStore_RevokeUser(t *testing.T) {
	store := auth.NewInMemoryRevocationStore()
	ctx := context.Background()

	issuedBefore := time.Now().Add(-time.Hour)

	revoked, err := store.IsUserRevoked(ctx, "staff-1", issuedBefore)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.RevokeUser(ctx, "staff-1", 24*time.Hour))

	revoked, err = store.IsUserRevoked(ctx, "staff-1", issuedBefore)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsUserRevoked(ctx, "staff-1", time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.False(t, revoked, "sessions issued after the revocation stay valid")

	revoked, err = store.IsUserRevoked(ctx, "staff-2", issuedBefore)
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestInMemoryRevocationStore_Concurrent(t *testing.T) {
	store := auth.NewInMemoryRevocationStore()
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				_ = store.Revoke(ctx, "shared", time.Minute)
				_, _ = store.IsRevoked(ctx, "shared")
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	revoked, err := store.IsRevoked(ctx, "shared")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRedisRevocationStore_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	store := auth.NewRedisRevocationStore(client)
	ctx := context.Background()

	err := store.Revoke(ctx, "sid", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to revoke session")

	_, err = store.IsRevoked(ctx, "sid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check session revocation")

	_, err = store.IsUserRevoked(ctx, "staff-1", time.Now())
	require.Error(t, err)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	_, err := auth.NewRedisClient(context.Background(), config.RedisConfig{Host: "127.0.0.1", Port: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestRevocationStore_Interface(t *testing.T) {
	var _ auth.RevocationStore = (*auth.RedisRevocationStore)(nil)
	var _ auth.RevocationStore = (*auth.InMemoryRevocationStore)(nil)
}
