package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notetree/internal/domain/models"
)

func TestNodeCache_PutGet(t *testing.T) {
	c := New(4)
	c.Put(models.Node{ID: "a", Title: "A"})

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "A", got.Title)

	c.Put(models.Node{ID: "a", Title: "A2"})
	got, _ = c.Get("a")
	assert.Equal(t, "A2", got.Title)
	assert.Equal(t, 1, c.Len())
}

func TestNodeCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)
	c.Put(models.Node{ID: "a"})
	c.Put(models.Node{ID: "b"})
	_, _ = c.Get("a") // a is now most recent
	c.Put(models.Node{ID: "c"})

	_, ok := c.Get("b")
	assert.False(t, ok, "b should have been evicted")

	ids := []string{}
	for _, n := range c.Nodes() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"a", "c"}, ids)
}

func TestNodeCache_Remove(t *testing.T) {
	c := New(0)
	c.PutAll([]models.Node{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	c.Remove("a")
	assert.Len(t, c.Nodes(), 2)

	c.Remove("b", "c", "missing")
	assert.Empty(t, c.Nodes())
	assert.Equal(t, 0, c.Len())
}

func TestNodeCache_NilIsNoop(t *testing.T) {
	var c *NodeCache
	c.Put(models.Node{ID: "a"})
	c.PutAll([]models.Node{{ID: "b"}})
	c.Remove("a")

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Nil(t, c.Nodes())
	assert.Equal(t, 0, c.Len())
}
