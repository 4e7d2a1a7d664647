package utils

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CacheStore is the caching contract shared by the in-memory and Redis
// backed implementations. The cache is advisory: callers must treat Get
// errors as misses and must not fail their own path on Set errors.
type CacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) (int, error)
	Close() error
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCacheStore is a process-local CacheStore. It is the default when
// Redis is not configured and the store used by the test suite.
type MemoryCacheStore struct {
	entries map[string]memoryEntry
	mutex   sync.RWMutex
}

func NewMemoryCacheStore() *MemoryCacheStore {
	return &MemoryCacheStore{
		entries: make(map[string]memoryEntry),
	}
}

func (c *MemoryCacheStore) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mutex.RLock()
	entry, ok := c.entries[key]
	c.mutex.RUnlock()

	if !ok {
		return false, nil
	}
	if time.Now().After(entry.expiresAt) {
		c.mutex.Lock()
		delete(c.entries, key)
		c.mutex.Unlock()
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *MemoryCacheStore) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[key] = memoryEntry{
		data:      data,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Invalidate removes every live entry whose key matches the pattern and
// returns how many were removed. Patterns support the `*` wildcard.
func (c *MemoryCacheStore) Invalidate(_ context.Context, pattern string) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	count := 0
	for key, entry := range c.entries {
		if !MatchPattern(pattern, key) {
			continue
		}
		if now.Before(entry.expiresAt) {
			count++
		}
		delete(c.entries, key)
	}
	return count, nil
}

func (c *MemoryCacheStore) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries = make(map[string]memoryEntry)
	return nil
}

// MatchPattern reports whether key matches a glob-style pattern where `*`
// stands for any run of characters. Used by the in-memory invalidation;
// the Redis implementation delegates the same syntax to SCAN MATCH.
func MatchPattern(pattern, key string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == key
	}

	if !strings.HasPrefix(key, parts[0]) {
		return false
	}
	key = key[len(parts[0]):]

	last := len(parts) - 1
	for i := 1; i < last; i++ {
		idx := strings.Index(key, parts[i])
		if idx < 0 {
			return false
		}
		key = key[idx+len(parts[i]):]
	}
	return strings.HasSuffix(key, parts[last])
}

// DeterministicKey derives a stable UUIDv5-style digest from the given
// inputs, so semantically different inputs cannot collide by concatenation.
func DeterministicKey(inputs ...string) string {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	combined := strings.Join(inputs, "\x1f")
	return uuid.NewMD5(namespace, []byte(combined)).String()
}
