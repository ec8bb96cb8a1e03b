package session

import (
	"sync"

	"github.com/converselabs/converse/internal/domain"
)

// Cache maps session ids to provider-side conversation handles so the
// gateway can skip re-sending full history on providers that keep
// incremental context. It is a process-local optimization only and is
// never a source of truth: an empty cache just means the next call
// falls back to full-history injection.
//
// Entries are evicted on deactivate, delete, clear-messages and process
// shutdown. There is no eviction policy beyond that; the map is bounded
// by the number of sessions actually touched in-process.
type Cache struct {
	mu      sync.RWMutex
	handles map[domain.SessionID]domain.ConversationHandle
}

func NewCache() *Cache {
	return &Cache{
		handles: make(map[domain.SessionID]domain.ConversationHandle),
	}
}

func (c *Cache) Get(id domain.SessionID) (domain.ConversationHandle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	h, ok := c.handles[id]
	return h, ok
}

func (c *Cache) Put(id domain.SessionID, handle domain.ConversationHandle) {
	if handle == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.handles[id] = handle
}

func (c *Cache) Evict(id domain.SessionID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handles, id)
}

// Reset drops every cached handle. Called on shutdown.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handles = make(map[domain.SessionID]domain.ConversationHandle)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handles)
}
