package panel

import (
	"sync"
	"time"

	"github.com/chmouel/lazypanel/internal/models"
)

// DefaultStaleWindow is the default maximum age at which a cached snapshot
// may still be served without refetching.
const DefaultStaleWindow = 2 * time.Second

// StatusCache holds the last fetched repository snapshot with a staleness
// window. Get never returns an entry older than the window; callers treat
// absence as "must refetch from the backend". Writes are last-write-wins
// and replace the snapshot wholesale.
type StatusCache struct {
	mu          sync.Mutex
	snapshot    *models.StatusSnapshot
	fetchedAt   time.Time
	staleWindow time.Duration
	now         func() time.Time
}

// NewStatusCache creates a cache with the given staleness window; zero or
// negative falls back to DefaultStaleWindow.
func NewStatusCache(staleWindow time.Duration) *StatusCache {
	if staleWindow <= 0 {
		staleWindow = DefaultStaleWindow
	}
	return &StatusCache{
		staleWindow: staleWindow,
		now:         time.Now,
	}
}

// Get returns the cached snapshot if present and younger than the stale
// window.
func (c *StatusCache) Get() (*models.StatusSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot == nil {
		return nil, false
	}
	if c.now().Sub(c.fetchedAt) >= c.staleWindow {
		return nil, false
	}
	return c.snapshot, true
}

// Set stores a freshly fetched snapshot.
func (c *StatusCache) Set(snapshot *models.StatusSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshot = snapshot
	c.fetchedAt = c.now()
}

// Invalidate clears the entry regardless of its age.
func (c *StatusCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshot = nil
	c.fetchedAt = time.Time{}
}
