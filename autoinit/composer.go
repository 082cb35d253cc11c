// Package autoinit composes a directory tree of source units into a single
// module.
//
// Subdirectories become nested modules and recognized source files become
// leaf entries named after the file without its suffix. Entries are processed
// one at a time: namespaces first, then units, each group in lexical order.
// A unit that exports a function is bound as a leaf that can never be merged
// into; a unit that exports a record is merged field by field; a unit with an
// initializer contributes whatever the initializer returns. The first error at
// any depth aborts the whole call and no module is returned.
package autoinit

import (
	"context"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/agentic-research/autoinit/api"
	"github.com/agentic-research/autoinit/internal/ctxlog"
	"github.com/agentic-research/autoinit/internal/scan"
	"github.com/agentic-research/autoinit/internal/unit"
)

// Composer scans directories and composes their entries into modules.
// A Composer is safe for concurrent use by independent Init calls.
type Composer struct {
	fs       billy.Filesystem
	units    *unit.Cache
	scanner  *scan.Scanner
	onMeta   func(dir string, meta *api.Metadata)
	metaFile string
	native   bool
}

// osRoot is shared by every composer over the OS filesystem so that they hit
// the same entries of a shared cache.
var osRoot = osfs.New("/")

// New returns a composer over the OS filesystem with the Lua loader.
func New(opts ...Option) *Composer {
	c := &Composer{fs: osRoot, native: true}
	for _, opt := range opts {
		opt(c)
	}
	if c.units == nil {
		c.units = unit.NewCache(unit.NewRegistry())
	}
	c.scanner = &scan.Scanner{
		FS:       c.fs,
		Suffixes: c.units.Registry().Suffixes(),
		MetaFile: c.metaFile,
	}
	return c
}

// Scanner returns the scanner the composer delegates to.
func (c *Composer) Scanner() *scan.Scanner {
	return c.scanner
}

// Init scans root and composes its entries. shared is handed unchanged to
// every initializer that declares it.
func (c *Composer) Init(ctx context.Context, root string, shared any) (api.Module, error) {
	root, err := c.resolve(root)
	if err != nil {
		return nil, err
	}
	return c.initDir(ctx, root, shared)
}

func (c *Composer) initDir(ctx context.Context, dir string, shared any) (api.Module, error) {
	meta, entries, err := c.scanner.Scan(dir)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Scanned directory.", "dir", dir, "entries", len(entries), "metadata", meta != nil)
	if meta != nil && c.onMeta != nil {
		c.onMeta(dir, meta)
	}
	return c.Compose(ctx, shared, entries)
}

// Compose builds a module from an entry list. Entries are processed strictly
// in order; a later entry overwrites the fields of an earlier one.
func (c *Composer) Compose(ctx context.Context, shared any, entries scan.EntryList) (api.Module, error) {
	logger := ctxlog.FromContext(ctx)
	module := api.Module{}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if api.IsFunc(module[e.Name]) {
			return nil, &api.OverloadError{Path: e.Path}
		}

		switch e.Kind {
		case scan.Namespace:
			sub, err := c.initDir(ctx, e.Path, shared)
			if err != nil {
				return nil, err
			}
			bind(module, e.Name).Merge(sub)
			logger.Debug("Composed namespace.", "name", e.Name, "path", e.Path, "fields", len(sub))

		case scan.Unit:
			u, err := c.units.Load(c.fs, e.Path, e.Suffix)
			if err != nil {
				return nil, err
			}

			if u.Kind == api.KindCallable {
				if _, bound := module[e.Name]; bound {
					return nil, &api.OverloadError{Path: e.Path, Existing: true}
				}
				module[e.Name] = u.Func
				logger.Debug("Bound function unit.", "name", e.Name, "path", e.Path)
				continue
			}

			target := bind(module, e.Name)
			if u.Kind == api.KindRecord {
				target.Merge(u.Record.Clone())
				logger.Debug("Merged record unit.", "name", e.Name, "path", e.Path)
				continue
			}

			logger.Debug("Running initializer.", "name", e.Name, "path", e.Path)
			contribution, err := u.Run(shared)
			if err != nil {
				logger.Debug("Initializer failed.", "name", e.Name, "path", e.Path, "error", err)
				return nil, err
			}
			target.Merge(contribution.Clone())
		}
	}
	return module, nil
}

// bind returns the module bound at name, creating it if the name is unbound
// or holds a plain value.
func bind(module api.Module, name string) api.Module {
	if m, ok := module[name].(api.Module); ok {
		return m
	}
	m := api.Module{}
	module[name] = m
	return m
}
