// Package unit loads source units and classifies them as callable, record or
// initializable.
package unit

import (
	"fmt"
	"sort"
	"strings"

	billy "github.com/go-git/go-billy/v5"

	"github.com/agentic-research/autoinit/api"
)

// Registry maps recognized file suffixes to loaders.
type Registry struct {
	loaders map[string]api.Loader
}

// NewRegistry returns a registry with the Lua loader installed.
func NewRegistry() *Registry {
	r := &Registry{loaders: make(map[string]api.Loader)}
	r.Register(LuaSuffix, NewLuaLoader())
	return r
}

// WithDataLoaders installs the JSON, TOML and HCL record loaders.
func (r *Registry) WithDataLoaders() *Registry {
	r.Register(".json", JSONLoader{})
	r.Register(".toml", TOMLLoader{})
	r.Register(".hcl", HCLLoader{})
	return r
}

// Register installs l for suffix, replacing any previous loader.
func (r *Registry) Register(suffix string, l api.Loader) {
	if !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}
	r.loaders[suffix] = l
}

// Suffixes returns the recognized suffixes in ascending order.
func (r *Registry) Suffixes() []string {
	out := make([]string, 0, len(r.loaders))
	for s := range r.loaders {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Load dispatches to the loader registered for suffix.
func (r *Registry) Load(fsys billy.Filesystem, path, suffix string) (api.Unit, error) {
	l, ok := r.loaders[suffix]
	if !ok {
		return api.Unit{}, fmt.Errorf("no loader registered for %q", suffix)
	}
	return l.Load(fsys, path)
}
