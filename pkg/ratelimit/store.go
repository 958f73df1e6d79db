package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists the cooldown State.
type Store interface {
	// Load returns the current state. A missing state is the zero State.
	Load(ctx context.Context) (State, error)

	// Extend moves BlockedUntil to until unless a later block is already
	// stored, and returns the resulting state.
	Extend(ctx context.Context, until, now time.Time) (State, error)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu    sync.Mutex
	state State
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

// Extend implements Store.
func (m *MemoryStore) Extend(_ context.Context, until, now time.Time) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if until.After(m.state.BlockedUntil) {
		m.state.BlockedUntil = until
	}
	m.state.LastUpdate = now
	return m.state, nil
}

// extendScript keeps the later of the stored and the proposed block.
// KEYS: blocked_until, last_update. ARGV: until (unix ms), now (unix ms).
var extendScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1])) or 0
local proposed = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
if proposed > current then
	current = proposed
end
local ttl = current - now + 1000
if ttl < 1000 then
	ttl = 1000
end
redis.call('SET', KEYS[1], current, 'PX', ttl)
redis.call('SET', KEYS[2], now, 'PX', ttl)
return current
`)

// RedisStore shares the cooldown between processes through Redis.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a store backed by redisClient.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{redis: redisClient}
}

// Load implements Store.
func (r *RedisStore) Load(ctx context.Context) (State, error) {
	pipe := r.redis.Pipeline()
	blockedCmd := pipe.Get(ctx, RedisKeyBlockedUntil)
	updateCmd := pipe.Get(ctx, RedisKeyLastUpdate)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return State{}, fmt.Errorf("load rate limit state from redis: %w", err)
	}

	blockedMs, err := millis(blockedCmd)
	if err != nil {
		return State{}, fmt.Errorf("parse blocked until: %w", err)
	}
	updateMs, err := millis(updateCmd)
	if err != nil {
		return State{}, fmt.Errorf("parse last update: %w", err)
	}

	return State{
		BlockedUntil: fromMillis(blockedMs),
		LastUpdate:   fromMillis(updateMs),
	}, nil
}

// Extend implements Store.
func (r *RedisStore) Extend(ctx context.Context, until, now time.Time) (State, error) {
	result, err := extendScript.Run(ctx, r.redis,
		[]string{RedisKeyBlockedUntil, RedisKeyLastUpdate},
		until.UnixMilli(), now.UnixMilli(),
	).Int64()
	if err != nil {
		return State{}, fmt.Errorf("store rate limit state in redis: %w", err)
	}

	return State{
		BlockedUntil: time.UnixMilli(result),
		LastUpdate:   time.UnixMilli(now.UnixMilli()),
	}, nil
}

func millis(cmd *redis.StringCmd) (int64, error) {
	raw, err := cmd.Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
