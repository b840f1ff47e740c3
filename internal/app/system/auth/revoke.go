package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker records logged-out token IDs until the tokens expire.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevoker keeps revoked token IDs in process memory. Entries are
// dropped by Sweep once their expiry passes.
type MemoryRevoker struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{until: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryRevoker) Revoke(_ context.Context, tokenID string, until time.Time) error {
	if !until.After(m.now()) {
		return nil
	}
	m.mu.Lock()
	m.until[tokenID] = until
	m.mu.Unlock()
	return nil
}

func (m *MemoryRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.until[tokenID]
	if !ok {
		return false, nil
	}
	return exp.After(m.now()), nil
}

// Sweep removes expired entries and returns how many were removed.
func (m *MemoryRevoker) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, exp := range m.until {
		if !exp.After(now) {
			delete(m.until, id)
			n++
		}
	}
	return n
}

// Len returns the number of tracked entries.
func (m *MemoryRevoker) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.until)
}

// RedisRevoker stores revoked token IDs as expiring Redis keys, so the
// revocation list is shared between instances and needs no sweeping.
type RedisRevoker struct {
	rdb    redis.Cmdable
	prefix string
}

// RevokedKeyPrefix namespaces revocation keys in Redis.
const RevokedKeyPrefix = "calendario:revoked:"

func NewRedisRevoker(rdb redis.Cmdable) *RedisRevoker {
	return &RedisRevoker{rdb: rdb, prefix: RevokedKeyPrefix}
}

func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, r.prefix+tokenID, 1, ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.prefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
