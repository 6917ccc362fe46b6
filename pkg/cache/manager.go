package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// purgeBatch is the number of keys unlinked per pipeline round trip.
const purgeBatch = 100

// Manager stores API responses in Redis. The Redis TTL of a key always
// follows the Expires field of its entry.
type Manager struct {
	redis *redis.Client
}

// NewManager creates a cache manager on redisClient.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{redis: redisClient}
}

// Get returns the entry stored under key, or ErrCacheMiss.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}
	if err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	entry, err := decodeEntry(data)
	if err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, err
	}

	// Redis may keep a key up to a second past Expires.
	if entry.IsExpired() {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.Inc()
	return entry, nil
}

// Set stores entry until its Expires time. Entries that are already stale
// are not stored.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheEntryBytes.Observe(float64(len(data)))
	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Refresh moves the expiry of an entry after a 304 revalidation. An expiry in
// the past removes the entry. If another writer replaces the entry
// concurrently, the newer entry wins and Refresh is a no-op.
func (m *Manager) Refresh(ctx context.Context, key CacheKey, expires time.Time) error {
	k := key.String()

	err := m.redis.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		if err != nil {
			return fmt.Errorf("redis get: %w", err)
		}

		entry, err := decodeEntry(data)
		if err != nil {
			return err
		}
		entry.Expires = expires

		ttl := entry.TTL()
		if ttl <= 0 {
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, k)
				return nil
			})
			return err
		}

		out, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal cache entry: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, out, ttl)
			return nil
		})
		return err
	}, k)

	switch {
	case err == nil, errors.Is(err, redis.TxFailedErr):
		return nil
	case errors.Is(err, ErrCacheMiss), errors.Is(err, ErrInvalidEntry):
		return err
	default:
		CacheErrors.WithLabelValues("refresh").Inc()
		return fmt.Errorf("refresh cache entry: %w", err)
	}
}

// Purge removes every entry of principal (all principals when empty) and
// returns the number of deleted keys. The scan completes before any key is
// unlinked.
func (m *Manager) Purge(ctx context.Context, principal string) (int, error) {
	seen := make(map[string]struct{})
	var keys []string

	iter := m.redis.Scan(ctx, 0, Pattern(principal), purgeBatch).Iterator()
	for iter.Next(ctx) {
		// SCAN may return a key more than once.
		k := iter.Val()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("purge").Inc()
		return 0, fmt.Errorf("redis scan: %w", err)
	}

	deleted := 0
	for start := 0; start < len(keys); start += purgeBatch {
		batch := keys[start:min(start+purgeBatch, len(keys))]

		pipe := m.redis.Pipeline()
		cmds := make([]*redis.IntCmd, len(batch))
		for i, k := range batch {
			cmds[i] = pipe.Unlink(ctx, k)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			CacheErrors.WithLabelValues("purge").Inc()
			CachePurged.Add(float64(deleted))
			return deleted, fmt.Errorf("redis unlink: %w", err)
		}
		for _, cmd := range cmds {
			deleted += int(cmd.Val())
		}
	}

	CachePurged.Add(float64(deleted))
	return deleted, nil
}

func decodeEntry(data []byte) (*CacheEntry, error) {
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return &entry, nil
}
