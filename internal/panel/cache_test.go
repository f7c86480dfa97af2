package panel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmouel/lazypanel/internal/models"
)

func TestStatusCacheGetSet(t *testing.T) {
	cache := NewStatusCache(2 * time.Second)

	snap, ok := cache.Get()
	assert.False(t, ok)
	assert.Nil(t, snap)

	cache.Set(&models.StatusSnapshot{Branch: "main"})
	snap, ok = cache.Get()
	require.True(t, ok)
	assert.Equal(t, "main", snap.Branch)
}

func TestStatusCacheStaleWindowBoundary(t *testing.T) {
	cache := NewStatusCache(2 * time.Second)
	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.Set(&models.StatusSnapshot{Branch: "main"})

	// Just inside the window.
	cache.now = func() time.Time { return now.Add(2*time.Second - time.Millisecond) }
	_, ok := cache.Get()
	assert.True(t, ok)

	// Exactly at the boundary: absent.
	cache.now = func() time.Time { return now.Add(2 * time.Second) }
	_, ok = cache.Get()
	assert.False(t, ok)

	// Beyond.
	cache.now = func() time.Time { return now.Add(3 * time.Second) }
	_, ok = cache.Get()
	assert.False(t, ok)
}

func TestStatusCacheInvalidate(t *testing.T) {
	cache := NewStatusCache(time.Minute)
	cache.Set(&models.StatusSnapshot{Branch: "main"})

	cache.Invalidate()

	_, ok := cache.Get()
	assert.False(t, ok)
}

func TestStatusCacheLastWriteWins(t *testing.T) {
	cache := NewStatusCache(time.Minute)
	cache.Set(&models.StatusSnapshot{Branch: "first"})
	cache.Set(&models.StatusSnapshot{Branch: "second"})

	snap, ok := cache.Get()
	require.True(t, ok)
	assert.Equal(t, "second", snap.Branch)
}

func TestStatusCacheZeroWindowUsesDefault(t *testing.T) {
	cache := NewStatusCache(0)
	assert.Equal(t, DefaultStaleWindow, cache.staleWindow)
}
