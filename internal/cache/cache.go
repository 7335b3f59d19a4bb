package cache

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// PathCache memoizes computed residual paths so the same Kalman run is never
// repeated for the same pair, window, and noise parameters. Validation and
// out-of-sample replay share one instance within a scan.
type PathCache struct {
	paths *gocache.Cache
}

// New creates a path cache whose entries live for ttl.
func New(ttl time.Duration) *PathCache {
	return &PathCache{
		paths: gocache.New(ttl, ttl*2),
	}
}

// Key builds a cache key from a pair identity, a window fingerprint, and the
// filter noise parameters.
func Key(y, x, window string, q, r float64) string {
	return fmt.Sprintf("%s|%s|%s|%.17g|%.17g", y, x, window, q, r)
}

// GetOrCompute returns the cached path for key, computing and storing it on a
// miss. Errors are not cached.
func (c *PathCache) GetOrCompute(key string, compute func() ([]float64, error)) ([]float64, error) {
	if val, found := c.paths.Get(key); found {
		if path, ok := val.([]float64); ok {
			return path, nil
		}
	}
	path, err := compute()
	if err != nil {
		return nil, err
	}
	c.paths.Set(key, path, gocache.DefaultExpiration)
	return path, nil
}

// Len returns the number of cached paths.
func (c *PathCache) Len() int {
	return c.paths.ItemCount()
}
