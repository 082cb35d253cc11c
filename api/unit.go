package api

import (
	"fmt"
	"os"

	billy "github.com/go-git/go-billy/v5"
)

// Kind classifies a loaded unit. It is resolved once at load time.
type Kind int

const (
	// KindCallable units are bound verbatim as a Func leaf.
	KindCallable Kind = iota
	// KindRecord units have their fields merged into the bound module.
	KindRecord
	// KindInitializable units run an initializer before their fields are merged.
	KindInitializable
)

func (k Kind) String() string {
	switch k {
	case KindCallable:
		return "callable"
	case KindRecord:
		return "record"
	case KindInitializable:
		return "initializable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// InitFunc is an initializer that does not take the shared context.
// A non-nil Module replaces the unit's record in the composed tree.
type InitFunc func() (Module, error)

// ContextInitFunc is an initializer that receives the shared context
// passed to Init.
type ContextInitFunc func(shared any) (Module, error)

// Unit is a loaded source unit.
//
// Exactly one of Func or Record is set. Initializable units carry their
// record and one of Init or InitWithContext.
type Unit struct {
	Kind   Kind
	Func   Func
	Record Module

	Init            InitFunc
	InitWithContext ContextInitFunc
}

// Callable returns a unit bound as a function leaf.
func Callable(fn Func) Unit {
	return Unit{Kind: KindCallable, Func: fn}
}

// Record returns a unit whose fields are merged as-is.
func Record(m Module) Unit {
	return Unit{Kind: KindRecord, Record: m}
}

// Initializable returns a unit whose initializer ignores the shared context.
func Initializable(m Module, init InitFunc) Unit {
	return Unit{Kind: KindInitializable, Record: m, Init: init}
}

// InitializableWithContext returns a unit whose initializer receives the
// shared context.
func InitializableWithContext(m Module, init ContextInitFunc) Unit {
	return Unit{Kind: KindInitializable, Record: m, InitWithContext: init}
}

// Run invokes the declared initializer. It returns the module to merge:
// the initializer's replacement when non-nil, otherwise the unit's record.
func (u Unit) Run(shared any) (Module, error) {
	var (
		replacement Module
		err         error
	)
	switch {
	case u.InitWithContext != nil:
		replacement, err = u.InitWithContext(shared)
	case u.Init != nil:
		replacement, err = u.Init()
	}
	if err != nil {
		return nil, err
	}
	if replacement != nil {
		return replacement, nil
	}
	return u.Record, nil
}

// Loader loads the unit stored at path.
type Loader interface {
	Load(fsys billy.Filesystem, path string) (Unit, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(fsys billy.Filesystem, path string) (Unit, error)

// Load implements Loader.
func (f LoaderFunc) Load(fsys billy.Filesystem, path string) (Unit, error) {
	return f(fsys, path)
}

// StaticLoader serves units that are built in Go rather than read from disk.
// The file at path must still exist to be scanned; its content is ignored.
type StaticLoader map[string]Unit

// Load implements Loader.
func (s StaticLoader) Load(_ billy.Filesystem, path string) (Unit, error) {
	u, ok := s[path]
	if !ok {
		return Unit{}, &os.PathError{Op: "load", Path: path, Err: os.ErrNotExist}
	}
	return u, nil
}
