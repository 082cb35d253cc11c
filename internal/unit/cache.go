package unit

import (
	"fmt"
	"strconv"
	"sync"

	billy "github.com/go-git/go-billy/v5"
	"golang.org/x/sync/singleflight"

	"github.com/agentic-research/autoinit/api"
)

// Cache loads every location at most once. A location is a path on one
// filesystem; filesystems are compared by identity, so the same path on two
// filesystems is loaded twice. Concurrent first loads of the same location
// share one load. Failed loads are not cached.
type Cache struct {
	registry *Registry

	mu    sync.RWMutex
	units map[string]api.Unit
	fsIDs map[billy.Filesystem]int
	group singleflight.Group
}

// NewCache returns an empty cache dispatching loads through r.
func NewCache(r *Registry) *Cache {
	return &Cache{
		registry: r,
		units:    make(map[string]api.Unit),
		fsIDs:    make(map[billy.Filesystem]int),
	}
}

// Registry returns the loaders the cache dispatches to.
func (c *Cache) Registry() *Registry {
	return c.registry
}

// Load returns the unit at path, loading it on first use.
func (c *Cache) Load(fsys billy.Filesystem, path, suffix string) (api.Unit, error) {
	key := c.key(fsys, path)
	c.mu.RLock()
	u, ok := c.units[key]
	c.mu.RUnlock()
	if ok {
		return u, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		u, ok := c.units[key]
		c.mu.RUnlock()
		if ok {
			return u, nil
		}

		u, err := c.registry.Load(fsys, path, suffix)
		if err != nil {
			return nil, fmt.Errorf("load unit %s: %w", path, err)
		}
		if err := validate(u); err != nil {
			return nil, fmt.Errorf("load unit %s: %w", path, err)
		}

		c.mu.Lock()
		c.units[key] = u
		c.mu.Unlock()
		return u, nil
	})
	if err != nil {
		return api.Unit{}, err
	}
	return v.(api.Unit), nil
}

// key identifies path on fsys.
func (c *Cache) key(fsys billy.Filesystem, path string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.fsIDs[fsys]
	if !ok {
		id = len(c.fsIDs)
		c.fsIDs[fsys] = id
	}
	return strconv.Itoa(id) + ":" + path
}

// Len returns the number of cached units.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.units)
}

func validate(u api.Unit) error {
	switch u.Kind {
	case api.KindCallable:
		if u.Func == nil {
			return fmt.Errorf("callable unit has no function")
		}
	case api.KindRecord:
	case api.KindInitializable:
		if u.Init == nil && u.InitWithContext == nil {
			return fmt.Errorf("initializable unit has no initializer")
		}
	default:
		return fmt.Errorf("unknown unit kind %s", u.Kind)
	}
	return nil
}
