package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker remembers logged-out token ids until they would have expired.
type Revoker interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type MemoryRevoker struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{tokens: map[string]time.Time{}}
}

func (m *MemoryRevoker) Revoke(_ context.Context, jti string, until time.Time) error {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, exp := range m.tokens {
		if now.After(exp) {
			delete(m.tokens, id)
		}
	}
	if until.After(now) {
		m.tokens[jti] = until
	}
	return nil
}

func (m *MemoryRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	exp, ok := m.tokens[jti]
	return ok && time.Now().Before(exp), nil
}

const revokedPrefix = "hackmath:revoked:"

// RedisRevoker shares revocations between instances; keys expire with the token.
type RedisRevoker struct {
	client *redis.Client
}

func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client}
}

func (r *RedisRevoker) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedPrefix+jti, 1, ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
