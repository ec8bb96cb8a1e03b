package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/converselabs/converse/internal/app/session"
)

func TestCacheGetPutEvict(t *testing.T) {
	c := session.NewCache()

	_, ok := c.Get("s1")
	assert.False(t, ok, "fresh cache must miss")

	c.Put("s1", "handle-1")
	h, ok := c.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "handle-1", h)

	// Replacing an entry keeps the latest handle.
	c.Put("s1", "handle-2")
	h, _ = c.Get("s1")
	assert.Equal(t, "handle-2", h)

	c.Evict("s1")
	_, ok = c.Get("s1")
	assert.False(t, ok)

	// Evicting twice is harmless.
	c.Evict("s1")
}

func TestCacheIgnoresNilHandles(t *testing.T) {
	c := session.NewCache()

	c.Put("s1", nil)
	_, ok := c.Get("s1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCacheReset(t *testing.T) {
	c := session.NewCache()
	c.Put("s1", 1)
	c.Put("s2", 2)
	require.Equal(t, 2, c.Len())

	c.Reset()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("s1")
	assert.False(t, ok)
}

func TestCacheEntriesAreIndependent(t *testing.T) {
	c := session.NewCache()
	c.Put("s1", "a")
	c.Put("s2", "b")

	c.Evict("s1")

	h, ok := c.Get("s2")
	require.True(t, ok)
	assert.Equal(t, "b", h)
}
