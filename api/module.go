package api

import (
	"fmt"
	"sort"
)

// Module is the composed output of a directory tree.
// Values are a Func (a leaf that cannot be extended), a nested Module,
// or any plain value contributed by a unit.
type Module map[string]any

// Func is a callable leaf. Units that export a function are bound as a Func,
// and functions nested inside records are converted to Func as well.
type Func func(args ...any) (any, error)

// Metadata is the optional per-directory value parsed from MetaFileName. It
// may hold any JSON value; the composer does not interpret it.
type Metadata struct {
	Value any
}

// Fields returns the metadata as a JSON object, or nil when it is not one.
func (m *Metadata) Fields() map[string]any {
	if m == nil {
		return nil
	}
	obj, _ := m.Value.(map[string]any)
	return obj
}

// MetaFileName is the well-known metadata file looked up in every directory.
const MetaFileName = "autoinit.json"

// Merge copies the fields of src into m. Later fields overwrite earlier ones.
func (m Module) Merge(src Module) {
	for k, v := range src {
		m[k] = v
	}
}

// Clone returns a deep copy of m. Nested modules and slices are copied;
// functions and other values are shared.
func (m Module) Clone() Module {
	if m == nil {
		return nil
	}
	out := make(Module, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Module:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Keys returns the module's names in ascending order.
func (m Module) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup resolves a path of names through nested modules.
func (m Module) Lookup(path ...string) (any, bool) {
	var cur any = m
	for _, name := range path {
		mod, ok := cur.(Module)
		if !ok {
			return nil, false
		}
		cur, ok = mod[name]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Call invokes the Func bound at path.
func (m Module) Call(path []string, args ...any) (any, error) {
	v, ok := m.Lookup(path...)
	if !ok {
		return nil, fmt.Errorf("no value bound at %v", path)
	}
	fn, ok := v.(Func)
	if !ok {
		return nil, fmt.Errorf("value at %v is %T, not a function", path, v)
	}
	return fn(args...)
}

// IsFunc reports whether v is a callable leaf.
func IsFunc(v any) bool {
	_, ok := v.(Func)
	return ok
}
