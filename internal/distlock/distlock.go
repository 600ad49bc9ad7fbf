// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package distlock provides the cross-process advisory lock spec.md §5
// requires for on-disk cache writes ("writes to a single on-disk cache
// key MUST be atomic... concurrent writers resolve to a single final
// file"). The in-process case is already handled by a sync.Mutex inside
// internal/ttscache and internal/silencecache; this package only matters
// when multiple job runners share one cache directory, e.g. on a shared
// volume. Grounded on the teacher's own use of github.com/redis/go-redis/v9
// for request-scoped state (internal/callcontext redis-backed session
// store): a SETNX-based mutex keyed by the cache key string, generalized
// here from request state to a store-time lock.
package distlock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker serializes concurrent store() calls to the same cache key across
// processes. Unlock must always be called, including on a failed Store.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Noop is the default Locker: in-process mutexes are the only
// serialization when no distributed locking is configured.
type Noop struct{}

func (Noop) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

// RedisLocker is a Locker backed by a SETNX-with-TTL advisory lock in
// Redis, polling until acquired, the lock expires, or ctx is done.
type RedisLocker struct {
	client    *redis.Client
	ttl       time.Duration
	pollEvery time.Duration
	keyPrefix string
}

// New dials Redis at addr. ttl bounds how long a held lock survives a
// crashed holder (the original store() call is a local file copy plus
// rename, always far faster than ttl in practice).
func New(addr string) *RedisLocker {
	return &RedisLocker{
		client:    redis.NewClient(&redis.Options{Addr: addr}),
		ttl:       10 * time.Second,
		pollEvery: 25 * time.Millisecond,
		keyPrefix: "langtrack:cachelock:",
	}
}

// NewWithClient wraps an existing client, letting tests inject a
// redismock-backed one.
func NewWithClient(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, pollEvery: 10 * time.Millisecond, keyPrefix: "langtrack:cachelock:"}
}

// Lock blocks until it acquires the advisory lock for key, or ctx is
// done. The returned unlock function releases it; callers must defer it.
func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := r.keyPrefix + key
	for {
		ok, err := r.client.SetNX(ctx, redisKey, "1", r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("distlock: acquiring %s: %w", key, err)
		}
		if ok {
			return func() { r.client.Del(context.Background(), redisKey) }, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.pollEvery):
		}
	}
}

// Close releases the underlying Redis connection.
func (r *RedisLocker) Close() error {
	return r.client.Close()
}
