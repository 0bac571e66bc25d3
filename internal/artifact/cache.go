// Package artifact memoizes expensive derived artifacts (parsed resumes,
// parsed job descriptions, greetings) keyed by a content hash of the source
// bytes. Identical input bytes always resolve to the same payload without
// re-invoking the compute function.
package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"
)

// Store persists artifacts durably. Lookup misses are reported via ok=false.
type Store interface {
	GetArtifact(hash, kind string) (payload []byte, ok bool, err error)
	PutArtifact(hash, kind string, payload []byte, createdAt time.Time) error
}

// Hash returns the hex-encoded sha256 digest of the content bytes.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Cache is a content-addressed memoization table backed by a durable store
// with an in-process map in front. It is safe for concurrent use; concurrent
// first access to the same key may compute the payload more than once, with
// last-writer-wins on the insert.
type Cache struct {
	store  Store
	logger *slog.Logger

	mu  sync.RWMutex
	mem map[string][]byte
}

// New creates a Cache over the given store.
func New(store Store) *Cache {
	return &Cache{
		store:  store,
		logger: slog.Default(),
		mem:    make(map[string][]byte),
	}
}

// GetOrCompute returns the cached payload for the content bytes, invoking
// compute only on a miss. The compute result is stored before returning; a
// durable-store write failure is logged but does not discard the computed
// payload.
func (c *Cache) GetOrCompute(ctx context.Context, kind string, content []byte, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	hash := Hash(content)
	key := kind + ":" + hash

	c.mu.RLock()
	if payload, ok := c.mem[key]; ok {
		c.mu.RUnlock()
		return payload, nil
	}
	c.mu.RUnlock()

	if payload, ok, err := c.store.GetArtifact(hash, kind); err != nil {
		c.logger.Warn("artifact lookup failed, recomputing", "kind", kind, "error", err)
	} else if ok {
		c.remember(key, payload)
		return payload, nil
	}

	// Not held under the mutex: a concurrent miss on the same key may compute
	// twice, which the cache contract accepts.
	payload, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.store.PutArtifact(hash, kind, payload, time.Now().UTC()); err != nil {
		c.logger.Warn("artifact write failed", "kind", kind, "error", err)
	}
	c.remember(key, payload)
	return payload, nil
}

func (c *Cache) remember(key string, payload []byte) {
	c.mu.Lock()
	c.mem[key] = payload
	c.mu.Unlock()
}
