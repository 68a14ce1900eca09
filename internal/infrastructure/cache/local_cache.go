// Package cache provides the query cache and its storage backends
package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// LocalCache provides thread-safe in-memory storage with LRU eviction and
// per-entry expiry
type LocalCache struct {
	items   map[string]*localCacheItem
	lruList *lruList
	maxSize int
	mu      sync.Mutex
}

// localCacheItem represents a cached value with TTL and LRU tracking
type localCacheItem struct {
	data      []byte
	expiresAt time.Time
	lruNode   *lruNode
}

// lruList implements a doubly-linked list for LRU tracking
type lruList struct {
	head *lruNode
	tail *lruNode
	size int
}

// lruNode represents a node in the LRU list
type lruNode struct {
	key  string
	prev *lruNode
	next *lruNode
}

// NewLocalCache creates a new local cache with specified maximum size
func NewLocalCache(maxSize int) *LocalCache {
	if maxSize <= 0 {
		maxSize = 1000
	}

	lc := &LocalCache{maxSize: maxSize}
	lc.reset()
	return lc
}

func (lc *LocalCache) reset() {
	lc.items = make(map[string]*localCacheItem)
	lc.lruList = &lruList{head: &lruNode{}, tail: &lruNode{}}
	lc.lruList.head.next = lc.lruList.tail
	lc.lruList.tail.prev = lc.lruList.head
}

// Get retrieves a value. Expired entries are dropped on access.
func (lc *LocalCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	item, exists := lc.items[key]
	if !exists {
		return nil, false, nil
	}

	if time.Now().After(item.expiresAt) {
		lc.deleteItem(key, item)
		return nil, false, nil
	}

	lc.moveToFront(item.lruNode)
	return item.data, true, nil
}

// Set stores a value with TTL
func (lc *LocalCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	expiresAt := time.Now().Add(ttl)

	if existing, exists := lc.items[key]; exists {
		existing.data = data
		existing.expiresAt = expiresAt
		lc.moveToFront(existing.lruNode)
		return nil
	}

	node := &lruNode{key: key}
	lc.items[key] = &localCacheItem{
		data:      data,
		expiresAt: expiresAt,
		lruNode:   node,
	}
	lc.addToFront(node)
	lc.evictIfNecessary()
	return nil
}

// Delete removes a single key
func (lc *LocalCache) Delete(_ context.Context, key string) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if item, exists := lc.items[key]; exists {
		lc.deleteItem(key, item)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix and reports how many
// were removed
func (lc *LocalCache) DeletePrefix(_ context.Context, prefix string) (int, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	removed := 0
	for key, item := range lc.items {
		if strings.HasPrefix(key, prefix) {
			lc.deleteItem(key, item)
			removed++
		}
	}
	return removed, nil
}

// Size returns the current number of items in the cache
func (lc *LocalCache) Size() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return len(lc.items)
}

// Clear removes all items from the cache
func (lc *LocalCache) Clear() {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.reset()
}

// CleanupExpired removes all expired items from the cache
func (lc *LocalCache) CleanupExpired() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, item := range lc.items {
		if now.After(item.expiresAt) {
			lc.deleteItem(key, item)
			removed++
		}
	}
	return removed
}

// AutoCleanup periodically removes expired items until ctx is done
func (lc *LocalCache) AutoCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lc.CleanupExpired()
		case <-ctx.Done():
			return
		}
	}
}

// Internal helper methods

func (lc *LocalCache) deleteItem(key string, item *localCacheItem) {
	delete(lc.items, key)
	lc.removeFromList(item.lruNode)
}

func (lc *LocalCache) evictIfNecessary() {
	for len(lc.items) > lc.maxSize {
		// Remove least recently used item
		if lc.lruList.tail.prev != lc.lruList.head {
			lru := lc.lruList.tail.prev
			lc.deleteItem(lru.key, lc.items[lru.key])
		}
	}
}

func (lc *LocalCache) addToFront(node *lruNode) {
	node.prev = lc.lruList.head
	node.next = lc.lruList.head.next
	lc.lruList.head.next.prev = node
	lc.lruList.head.next = node
	lc.lruList.size++
}

func (lc *LocalCache) removeFromList(node *lruNode) {
	node.prev.next = node.next
	node.next.prev = node.prev
	lc.lruList.size--
}

func (lc *LocalCache) moveToFront(node *lruNode) {
	lc.removeFromList(node)
	lc.addToFront(node)
}
