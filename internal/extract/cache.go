package extract

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/datamermaid/covariates-cli/internal/catalog"
)

// resolutionCache memoizes catalog resolution per (collection, date) key for
// the lifetime of one run. Negative outcomes (no item for the date) are
// memoized too, so events sharing a collection and date cost one catalog
// query, not one each. Resolution errors are not memoized: the failing task
// carries the error, and no retry happens within the run.
type resolutionCache struct {
	resolver Resolver
	group    singleflight.Group

	mu   sync.Mutex
	memo map[string]resolution
}

type resolution struct {
	item *catalog.Item // nil = explicit "not found"
}

func newResolutionCache(resolver Resolver) *resolutionCache {
	return &resolutionCache{
		resolver: resolver,
		memo:     make(map[string]resolution),
	}
}

// resolve returns the memoized item for the key, querying the catalog at
// most once per distinct key. Concurrent first lookups for the same key
// collapse into a single in-flight query.
func (c *resolutionCache) resolve(ctx context.Context, collectionID, date string) (*catalog.Item, error) {
	key := collectionID + ":" + date

	c.mu.Lock()
	if r, ok := c.memo[key]; ok {
		c.mu.Unlock()
		return r.item, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		item, err := c.resolver.ResolveForDate(ctx, collectionID, date)
		if err != nil {
			return nil, err
		}
		r := resolution{item: item}
		c.mu.Lock()
		c.memo[key] = r
		c.mu.Unlock()
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(resolution).item, nil
}
