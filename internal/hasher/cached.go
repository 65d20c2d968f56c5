package hasher

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultCacheSize = 1024
	defaultCacheTTL  = time.Hour
)

// Cached memoizes fingerprints by path, size and mtime so re-uploading the
// same files in one process skips the expensive hash.
type Cached struct {
	inner ContentHasher
	cache *expirable.LRU[string, string]
}

func NewCached(inner ContentHasher, size int, ttl time.Duration) *Cached {
	return &Cached{
		inner: inner,
		cache: expirable.NewLRU[string, string](size, nil, ttl),
	}
}

func (c *Cached) Hash(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", &HashError{Path: path, Err: err}
	}

	key := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}

	v, err := c.inner.Hash(ctx, path)
	if err != nil {
		return "", err
	}

	c.cache.Add(key, v)
	return v, nil
}

func (c *Cached) Len() int {
	return c.cache.Len()
}
