/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - Schema Cache
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package catalog

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// Loader introspects a schema on a cache miss
type Loader func(ctx context.Context) (RawSchema, error)

type cacheEntry struct {
	schema    RawSchema
	createdAt time.Time
	expiresAt time.Time
}

// SchemaCache keeps introspected schemas for a bounded time, keyed by
// connection identity. A zero TTL disables caching and every lookup
// goes to the loader.
type SchemaCache struct {
	entries map[string]*cacheEntry
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
}

// NewSchemaCache creates a schema cache with the given TTL
func NewSchemaCache(ttl time.Duration) *SchemaCache {
	return &SchemaCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// TTL returns the configured entry lifetime
func (c *SchemaCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached schema for a connection, if still fresh
func (c *SchemaCache) Get(connection string) (RawSchema, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	key := generateKey(connection)

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || !c.now().Before(entry.expiresAt) {
		return nil, false
	}
	return entry.schema, true
}

// Set stores a schema for a connection and drops expired entries
func (c *SchemaCache) Set(connection string, schema RawSchema) {
	if c.ttl <= 0 {
		return
	}

	now := c.now()
	entry := &cacheEntry{
		schema:    schema,
		createdAt: now,
		expiresAt: now.Add(c.ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
	c.entries[generateKey(connection)] = entry
}

// GetOrLoad returns the cached schema or calls load and caches its result.
// Load errors are not cached.
func (c *SchemaCache) GetOrLoad(ctx context.Context, connection string, load Loader) (RawSchema, error) {
	if schema, ok := c.Get(connection); ok {
		return schema, nil
	}

	schema, err := load(ctx)
	if err != nil {
		return nil, err
	}

	c.Set(connection, schema)
	return schema, nil
}

// Clear removes all entries
func (c *SchemaCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
}

// Size returns the number of stored entries, expired or not
func (c *SchemaCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// GetStats returns cache statistics
func (c *SchemaCache) GetStats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var oldestEntry time.Time
	expiredCount := 0
	now := c.now()

	for _, entry := range c.entries {
		if oldestEntry.IsZero() || entry.createdAt.Before(oldestEntry) {
			oldestEntry = entry.createdAt
		}
		if !now.Before(entry.expiresAt) {
			expiredCount++
		}
	}

	return map[string]interface{}{
		"total_entries": len(c.entries),
		"expired_count": expiredCount,
		"oldest_entry":  oldestEntry,
		"cache_ttl_sec": c.ttl.Seconds(),
	}
}

// generateKey hashes the connection identity so credentials embedded in
// a connection string are not kept in memory as map keys.
func generateKey(connection string) string {
	sum := sha256.Sum256([]byte(connection))
	return fmt.Sprintf("%x", sum)
}
