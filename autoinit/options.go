package autoinit

import (
	"path/filepath"

	billy "github.com/go-git/go-billy/v5"

	"github.com/agentic-research/autoinit/api"
	"github.com/agentic-research/autoinit/internal/unit"
)

// Option configures a Composer.
type Option func(*Composer)

// WithFilesystem composes from fsys instead of the OS filesystem. Paths are
// interpreted by fsys as given.
func WithFilesystem(fsys billy.Filesystem) Option {
	return func(c *Composer) {
		c.fs = fsys
		c.native = false
	}
}

// WithCache shares a unit cache between composers. The cache's registry
// decides which suffixes are recognized. Units are cached per filesystem, so
// composers over different filesystems never see each other's units.
func WithCache(cache *unit.Cache) Option {
	return func(c *Composer) {
		c.units = cache
	}
}

// WithRegistry uses a fresh cache over r.
func WithRegistry(r *unit.Registry) Option {
	return func(c *Composer) {
		c.units = unit.NewCache(r)
	}
}

// WithMetadataHook hands every directory's metadata to fn before the
// directory's entries are composed.
func WithMetadataHook(fn func(dir string, meta *api.Metadata)) Option {
	return func(c *Composer) {
		c.onMeta = fn
	}
}

// WithMetaFile changes the metadata file name looked up in each directory.
func WithMetaFile(name string) Option {
	return func(c *Composer) {
		c.metaFile = name
	}
}

// resolve makes root absolute when composing from the OS filesystem, which is
// rooted at "/".
func (c *Composer) resolve(root string) (string, error) {
	if !c.native || filepath.IsAbs(root) {
		return root, nil
	}
	return filepath.Abs(root)
}
