package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRU_Basic(t *testing.T) {
	lru := NewLRU(2)

	lru.Set(1, "ruby")
	value, exists := lru.Get(1)
	assert.True(t, exists)
	assert.Equal(t, "ruby", value)

	_, exists = lru.Get(404)
	assert.False(t, exists)
}

func TestLRU_Capacity(t *testing.T) {
	lru := NewLRU(2)

	lru.Set(1, "a")
	lru.Set(2, "b")

	// Adding a third record evicts the oldest.
	lru.Set(3, "c")

	_, exists := lru.Get(1)
	assert.False(t, exists)

	value, exists := lru.Get(2)
	assert.True(t, exists)
	assert.Equal(t, "b", value)

	value, exists = lru.Get(3)
	assert.True(t, exists)
	assert.Equal(t, "c", value)
	assert.Equal(t, 2, lru.Len())
}

func TestLRU_GetRefreshesRecency(t *testing.T) {
	lru := NewLRU(2)

	lru.Set(1, "a")
	lru.Set(2, "b")

	// Touch key 1 so key 2 becomes the eviction candidate.
	_, _ = lru.Get(1)
	lru.Set(3, "c")

	_, exists := lru.Get(2)
	assert.False(t, exists)
	_, exists = lru.Get(1)
	assert.True(t, exists)
}

func TestLRU_UpdateExisting(t *testing.T) {
	lru := NewLRU(2)

	lru.Set(1, "a")
	lru.Set(1, "a2")

	value, exists := lru.Get(1)
	assert.True(t, exists)
	assert.Equal(t, "a2", value)
	assert.Equal(t, 1, lru.Len())
}

func TestLRU_Remove(t *testing.T) {
	lru := NewLRU(2)

	lru.Set(1, "a")
	lru.Remove(1)

	_, exists := lru.Get(1)
	assert.False(t, exists)
	assert.Equal(t, 0, lru.Len())

	// Removing a missing key is a no-op.
	lru.Remove(404)
}
