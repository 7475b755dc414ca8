package tool

import (
	"context"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedRegistry keeps recently looked-up tools in memory. Misses are never
// cached, so a tool created elsewhere becomes visible on the next lookup.
type CachedRegistry struct {
	repo  Repository
	cache *lru.Cache[string, *Tool]
}

func NewCachedRegistry(repo Repository, size int) (*CachedRegistry, error) {
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, *Tool](size)
	if err != nil {
		return nil, err
	}
	return &CachedRegistry{repo: repo, cache: cache}, nil
}

func (c *CachedRegistry) Get(ctx context.Context, id string) (*Tool, error) {
	if t, ok := c.cache.Get(id); ok {
		slog.DebugContext(ctx, "tool cache hit", "tool_id", id)
		return t, nil
	}

	t, err := c.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, t)
	return t, nil
}

func (c *CachedRegistry) List(ctx context.Context) ([]Tool, error) {
	return c.repo.List(ctx)
}

func (c *CachedRegistry) Create(ctx context.Context, t *Tool) error {
	if err := c.repo.Create(ctx, t); err != nil {
		return err
	}
	c.cache.Add(t.ID, t)
	return nil
}

func (c *CachedRegistry) Count(ctx context.Context) (int, error) {
	return c.repo.Count(ctx)
}

func (c *CachedRegistry) Purge() {
	c.cache.Purge()
}
