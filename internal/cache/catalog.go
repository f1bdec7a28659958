package cache

import (
	"context"
	"encoding/json"

	"github.com/mcpax/mcpax-cli/internal/modrinth"
)

// remote is the catalog surface the caching layer wraps.
type remote interface {
	Project(ctx context.Context, slug string) (modrinth.Project, error)
	Versions(ctx context.Context, slug string) ([]modrinth.Version, error)
}

// Catalog serves project metadata and version lists from the on-disk
// cache when a fresh entry exists, falling through to the remote
// otherwise. Errors are never cached; a remote failure with a stale
// entry still fails.
type Catalog struct {
	remote remote
	cache  *Cache
}

// NewCatalog wraps a catalog client with this cache.
func NewCatalog(remote remote, c *Cache) *Catalog {
	return &Catalog{remote: remote, cache: c}
}

func (c *Catalog) Project(ctx context.Context, slug string) (modrinth.Project, error) {
	if body, ok := c.cache.Get("project", slug); ok {
		var p modrinth.Project
		if err := json.Unmarshal(body, &p); err == nil {
			return p, nil
		}
	}
	p, err := c.remote.Project(ctx, slug)
	if err != nil {
		return modrinth.Project{}, err
	}
	if body, err := json.Marshal(p); err == nil {
		_ = c.cache.Put("project", slug, body)
	}
	return p, nil
}

func (c *Catalog) Versions(ctx context.Context, slug string) ([]modrinth.Version, error) {
	if body, ok := c.cache.Get("versions", slug); ok {
		var vs []modrinth.Version
		if err := json.Unmarshal(body, &vs); err == nil {
			return vs, nil
		}
	}
	vs, err := c.remote.Versions(ctx, slug)
	if err != nil {
		return nil, err
	}
	if body, err := json.Marshal(vs); err == nil {
		_ = c.cache.Put("versions", slug, body)
	}
	return vs, nil
}
