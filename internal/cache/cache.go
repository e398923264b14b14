// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache provides per-session memoization for embedding lookups and
// derived text transformations. Caches are never shared across sessions;
// each ResearchSession owns its own instances.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Key returns a stable cache key for the normalized input text, optionally
// qualified by operation tags (a transformation of the same text under a
// different guiding query must not collide).
func Key(text string, tags ...string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(text))))
	for _, t := range tags {
		h.Write([]byte{0})
		h.Write([]byte(t))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// cache memoizes compute results by key with single-flight semantics:
// concurrent callers for the same missing key share one backend call.
type cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
	flight  singleflight.Group
}

func newCache[V any]() *cache[V] {
	return &cache[V]{entries: make(map[string]V)}
}

func (c *cache[V]) getOrCompute(ctx context.Context, key string, compute func(context.Context) (V, error)) (V, error) {
	c.mu.RLock()
	v, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}

	res, err, _ := c.flight.Do(key, func() (any, error) {
		// Re-check: a previous flight may have stored the value between the
		// read-lock release and Do acquiring the key.
		c.mu.RLock()
		v, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return v, nil
		}

		v, err := compute(ctx)
		if err != nil {
			return v, err
		}
		c.mu.Lock()
		c.entries[key] = v
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

func (c *cache[V]) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// EmbeddingCache memoizes text → vector lookups.
type EmbeddingCache struct {
	inner *cache[[]float64]
}

// NewEmbeddingCache returns an empty embedding cache.
func NewEmbeddingCache() *EmbeddingCache {
	return &EmbeddingCache{inner: newCache[[]float64]()}
}

// GetOrCompute returns the cached vector for text, invoking compute on a
// miss. Concurrent callers for the same text await one in-flight compute.
func (c *EmbeddingCache) GetOrCompute(ctx context.Context, text string, compute func(context.Context) ([]float64, error)) ([]float64, error) {
	return c.inner.getOrCompute(ctx, Key(text), compute)
}

// Size returns the number of cached vectors.
func (c *EmbeddingCache) Size() int { return c.inner.size() }

// TransformationCache memoizes derived forms of text (e.g. a document
// compressed for a particular guiding query), keyed by content plus an
// operation tag.
type TransformationCache struct {
	inner *cache[string]
}

// NewTransformationCache returns an empty transformation cache.
func NewTransformationCache() *TransformationCache {
	return &TransformationCache{inner: newCache[string]()}
}

// GetOrCompute returns the cached transformation of text under op, invoking
// compute on a miss.
func (c *TransformationCache) GetOrCompute(ctx context.Context, text, op string, compute func(context.Context) (string, error)) (string, error) {
	return c.inner.getOrCompute(ctx, Key(text, op), compute)
}

// Size returns the number of cached transformations.
func (c *TransformationCache) Size() int { return c.inner.size() }
