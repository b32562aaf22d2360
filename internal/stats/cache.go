package stats

import (
	"sync"

	"github.com/sydlexius/dirscope/internal/directory"
)

// Cache memoizes CategoryStats for one version of a resource set.
type Cache struct {
	mu      sync.Mutex
	valid   bool
	version uint64
	stats   []CategoryStat
}

// CategoryStats returns the stats for items at version, recomputing only
// when the version differs from the cached one. Callers must pass the
// version that belongs to items.
func (c *Cache) CategoryStats(items []directory.ResourceItem, version uint64) []CategoryStat {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid || c.version != version {
		c.stats = CategoryStats(items)
		c.version = version
		c.valid = true
	}
	out := make([]CategoryStat, len(c.stats))
	copy(out, c.stats)
	return out
}
