// Package cache holds the bounded in-memory copy of confirmed nodes that the tree
// manager falls back to when the store cannot be reached at load time.
package cache

import (
	"sort"
	"sync"

	"github.com/golang/groupcache/lru"

	"notetree/internal/domain/models"
)

// DefaultMaxEntries is used when New is given a non-positive size
const DefaultMaxEntries = 2048

// NodeCache is an LRU keyed by node id. Least recently written or read nodes are
// evicted once MaxEntries is reached. A nil *NodeCache is a valid no-op cache.
type NodeCache struct {
	mu   sync.Mutex
	lru  *lru.Cache
	keys map[string]struct{}
}

// New creates a cache holding at most maxEntries nodes
func New(maxEntries int) *NodeCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	c := &NodeCache{
		lru:  lru.New(maxEntries),
		keys: make(map[string]struct{}),
	}
	// lru calls OnEvicted for evictions and Remove alike
	c.lru.OnEvicted = func(key lru.Key, _ interface{}) {
		delete(c.keys, key.(string))
	}
	return c
}

// Put stores or refreshes a node
func (c *NodeCache) Put(node models.Node) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(node)
}

// PutAll stores every node in order; later nodes win on eviction pressure
func (c *NodeCache) PutAll(nodes []models.Node) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range nodes {
		c.put(n)
	}
}

func (c *NodeCache) put(node models.Node) {
	c.lru.Add(node.ID, node)
	c.keys[node.ID] = struct{}{}
}

// Get returns the cached node
func (c *NodeCache) Get(id string) (models.Node, bool) {
	if c == nil {
		return models.Node{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(id)
	if !ok {
		return models.Node{}, false
	}
	return v.(models.Node), true
}

// Remove drops nodes the store no longer has, e.g. after a purge
func (c *NodeCache) Remove(ids ...string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.lru.Remove(id)
	}
}

// Nodes returns every cached node ordered by id
func (c *NodeCache) Nodes() []models.Node {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.keys))
	for id := range c.keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.Node, 0, len(ids))
	for _, id := range ids {
		if v, ok := c.lru.Get(id); ok {
			out = append(out, v.(models.Node))
		}
	}
	return out
}

// Len returns the number of cached nodes
func (c *NodeCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

