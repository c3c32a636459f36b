package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/petal-labs/instructor/core"
)

// Cache stores chat responses by key.
type Cache interface {
	Get(key string) (*core.ChatResponse, bool)
	Set(key string, resp *core.ChatResponse, ttl time.Duration)
}

// RequestKey hashes the transport ID and the full request.
func RequestKey(transportID string, req *core.ChatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(transportID))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WithCache answers repeated identical Chat requests from cache for ttl.
// Only successful responses are stored. Streams are never cached.
//
// A repair attempt differs from the attempt before it, so caching never
// short-circuits Create's retry loop.
func WithCache(cache Cache, ttl time.Duration) Middleware {
	return func(next core.Transport) core.Transport {
		chat := func(call ChatFunc) ChatFunc {
			return func(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
				key, err := RequestKey(next.ID(), req)
				if err != nil {
					return call(ctx, req)
				}
				if resp, ok := cache.Get(key); ok {
					return resp, nil
				}
				resp, err := call(ctx, req)
				if err != nil {
					return nil, err
				}
				cache.Set(key, resp, ttl)
				return resp, nil
			}
		}
		return Wrap(next, chat, nil)
	}
}

type memoryCache struct {
	mu    sync.RWMutex
	items map[string]cacheItem
	now   func() time.Time
}

type cacheItem struct {
	resp    *core.ChatResponse
	expires time.Time
}

// NewMemoryCache returns an in-process Cache. Expired entries are
// dropped on the next Set.
func NewMemoryCache() Cache {
	return &memoryCache{items: make(map[string]cacheItem), now: time.Now}
}

func (c *memoryCache) Get(key string) (*core.ChatResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[key]
	if !ok || c.now().After(item.expires) {
		return nil, false
	}
	return item.resp, true
}

func (c *memoryCache) Set(key string, resp *core.ChatResponse, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, item := range c.items {
		if now.After(item.expires) {
			delete(c.items, k)
		}
	}
	c.items[key] = cacheItem{resp: resp, expires: now.Add(ttl)}
}
