package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/digimall/admin-gateway/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// RevocationStore invalidates session cookies before their JWT expiry
// (sign-out). Entries only need to live as long as the cookie they revoke.
type RevocationStore interface {
	// Revoke marks a session ID as signed out for ttl
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error

	// IsRevoked checks whether a session ID has been signed out
	IsRevoked(ctx context.Context, sessionID string) (bool, error)

	// RevokeUser invalidates every session of a user issued up to now
	RevokeUser(ctx context.Context, userID string, ttl time.Duration) error

	// IsUserRevoked reports whether a session issued at issuedAt predates
	// the user's last RevokeUser call
	IsUserRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}

// NewRedisClient creates a go-redis client and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 3,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis for session revocation: %w", err)
	}
	return client, nil
}

// RedisRevocationStore implements RevocationStore using Redis
type RedisRevocationStore struct {
	client    redis.Cmdable
	keyPrefix string
}

// NewRedisRevocationStore creates a revocation store on an existing Redis client
func NewRedisRevocationStore(client redis.Cmdable) *RedisRevocationStore {
	return &RedisRevocationStore{
		client:    client,
		keyPrefix: "admin:session:revoked:",
	}
}

func (r *RedisRevocationStore) sessionKey(sessionID string) string {
	return r.keyPrefix + "sid:" + sessionID
}

func (r *RedisRevocationStore) userKey(userID string) string {
	return r.keyPrefix + "user:" + userID
}

// Revoke adds the session ID with a TTL
func (r *RedisRevocationStore) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.sessionKey(sessionID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// IsRevoked checks whether the session ID is present
func (r *RedisRevocationStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	exists, err := r.client.Exists(ctx, r.sessionKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session revocation: %w", err)
	}
	return exists > 0, nil
}

// RevokeUser stores the current Unix time as the user's invalidation point
func (r *RedisRevocationStore) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.userKey(userID), time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke user sessions: %w", err)
	}
	return nil
}

// IsUserRevoked compares issuedAt against the stored invalidation point
func (r *RedisRevocationStore) IsUserRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	val, err := r.client.Get(ctx, r.userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user session revocation: %w", err)
	}

	invalidatedAt, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse invalidation timestamp: %w", err)
	}
	return issuedAt.Unix() <= invalidatedAt, nil
}

var _ RevocationStore = (*RedisRevocationStore)(nil)

// InMemoryRevocationStore is the single-instance fallback used when Redis
// is disabled. It does not share state between gateway replicas.
type InMemoryRevocationStore struct {
	mu       sync.Mutex
	sessions map[string]time.Time // session ID -> entry expiry
	users    map[string]time.Time // user ID -> invalidation time
}

// NewInMemoryRevocationStore creates a new in-memory revocation store
func NewInMemoryRevocationStore() *InMemoryRevocationStore {
	return &InMemoryRevocationStore{
		sessions: make(map[string]time.Time),
		users:    make(map[string]time.Time),
	}
}

// Revoke records the session ID until now+ttl
func (m *InMemoryRevocationStore) Revoke(_ context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for id, exp := range m.sessions {
		if now.After(exp) {
			delete(m.sessions, id)
		}
	}
	m.sessions[sessionID] = now.Add(ttl)
	return nil
}

// IsRevoked checks whether the session ID is recorded and not yet expired
func (m *InMemoryRevocationStore) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.sessions[sessionID]
	if !ok {
		return false, nil
	}
	if time.Now().After(exp) {
		delete(m.sessions, sessionID)
		return false, nil
	}
	return true, nil
}

// RevokeUser records the current time as the user's invalidation point
func (m *InMemoryRevocationStore) RevokeUser(_ context.Context, userID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = time.Now()
	return nil
}

// IsUserRevoked reports whether issuedAt is at or before the invalidation point
func (m *InMemoryRevocationStore) IsUserRevoked(_ context.Context, userID string, issuedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	invalidatedAt, ok := m.users[userID]
	if !ok {
		return false, nil
	}
	return !issuedAt.After(invalidatedAt), nil
}

var _ RevocationStore = (*InMemoryRevocationStore)(nil)
