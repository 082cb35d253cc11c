package unit

import (
	"fmt"
	"sync"

	"github.com/Shopify/go-lua"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/agentic-research/autoinit/api"
)

// LuaSuffix is the suffix of Lua source units.
const LuaSuffix = ".lua"

// LuaLoader runs each Lua file in its own state and classifies the value the
// chunk returns:
//
//	return function(...) end            -- callable
//	return { answer = 42 }              -- record
//	return { init = function(ctx) end } -- initializable
//
// An initializer may return a replacement table, nothing, or nil (or false)
// plus an error value. Raising a Lua error also fails the initializer.
type LuaLoader struct{}

// NewLuaLoader returns a loader for .lua units.
func NewLuaLoader() *LuaLoader {
	return &LuaLoader{}
}

// Error is a failure raised by Lua code. Its message is the Lua error value.
// Value holds the converted error value when it was not a string.
type Error struct {
	Message string
	Value   any
}

func (e *Error) Error() string { return e.Message }

// Load runs the chunk at path and classifies its return value.
func (l *LuaLoader) Load(fsys billy.Filesystem, path string) (api.Unit, error) {
	src, err := util.ReadFile(fsys, path)
	if err != nil {
		return api.Unit{}, err
	}

	vm := newLuaVM()
	vm.mu.Lock()
	defer vm.mu.Unlock()

	state := vm.state
	top := state.Top()
	if err := lua.LoadBuffer(state, string(src), "@"+path, ""); err != nil {
		return api.Unit{}, fmt.Errorf("compile: %w", vm.errorSince(top, err))
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return api.Unit{}, fmt.Errorf("run: %w", vm.errorSince(top, err))
	}
	defer state.Pop(1)

	switch state.TypeOf(-1) {
	case lua.TypeFunction:
		return api.Callable(vm.funcAt(-1)), nil
	case lua.TypeTable:
		rec := vm.tableToModule(-1)
		state.Field(-1, "init")
		isInit := state.IsFunction(-1)
		var init api.ContextInitFunc
		if isInit {
			init = vm.initAt(-1)
		}
		state.Pop(1)
		if !isInit {
			return api.Record(rec), nil
		}
		return api.InitializableWithContext(rec, init), nil
	default:
		return api.Unit{}, fmt.Errorf("chunk returned %s, expected a function or a table", lua.TypeNameOf(state, -1))
	}
}

// luaVM owns one Lua state. Every entry into the state holds mu.
type luaVM struct {
	mu    sync.Mutex
	state *lua.State
	refs  int
}

func newLuaVM() *luaVM {
	state := lua.NewState()
	lua.OpenLibraries(state)
	registerContextType(state)
	return &luaVM{state: state}
}

// errorSince converts a failed call into an Error carrying the Lua error
// value, if one was left above top, and restores the stack to top.
func (vm *luaVM) errorSince(top int, err error) error {
	state := vm.state
	defer state.SetTop(top)
	if state.Top() <= top {
		return err
	}
	msg, ok := state.ToString(-1)
	if !ok {
		return err
	}
	return &Error{Message: msg}
}

// ref pins the value at index in the registry and returns its key.
func (vm *luaVM) ref(index int) string {
	vm.refs++
	key := fmt.Sprintf("autoinit.ref.%d", vm.refs)
	vm.state.PushValue(index)
	vm.state.SetField(lua.RegistryIndex, key)
	return key
}

// call invokes the pinned function with args and returns up to results values.
// Callers hold mu.
func (vm *luaVM) call(key string, results int, args ...any) ([]any, error) {
	state := vm.state
	top := state.Top()
	defer state.SetTop(top)

	if !state.CheckStack(len(args) + results + 1) {
		return nil, fmt.Errorf("lua stack overflow calling with %d arguments", len(args))
	}
	state.Field(lua.RegistryIndex, key)
	for _, a := range args {
		pushValue(state, a)
	}
	if err := state.ProtectedCall(len(args), results, 0); err != nil {
		return nil, vm.errorSince(top, err)
	}

	out := make([]any, results)
	for i := 0; i < results; i++ {
		out[i] = vm.toGo(top + 1 + i)
	}
	return out, nil
}

// funcAt wraps the Lua function at index as an api.Func.
func (vm *luaVM) funcAt(index int) api.Func {
	key := vm.ref(index)
	return func(args ...any) (any, error) {
		vm.mu.Lock()
		defer vm.mu.Unlock()
		out, err := vm.call(key, 1, args...)
		if err != nil {
			return nil, err
		}
		return out[0], nil
	}
}

// initAt wraps the Lua init function at index. It is called as init(ctx).
func (vm *luaVM) initAt(index int) api.ContextInitFunc {
	key := vm.ref(index)
	return func(shared any) (api.Module, error) {
		vm.mu.Lock()
		defer vm.mu.Unlock()
		out, err := vm.call(key, 2, shared)
		if err != nil {
			return nil, err
		}
		if failed(out[0]) {
			if out[1] != nil {
				return nil, initError(out[1])
			}
			return nil, nil
		}
		switch v := out[0].(type) {
		case api.Module:
			return v, nil
		default:
			return nil, fmt.Errorf("init returned %T, expected a table or nil", v)
		}
	}
}

// failed reports whether an initializer's first result signals failure, as
// in `return nil, err` or `return false, err`.
func failed(v any) bool {
	b, ok := v.(bool)
	return v == nil || (ok && !b)
}

// initError wraps the second result of a failed initializer.
func initError(v any) error {
	switch e := v.(type) {
	case string:
		return &Error{Message: e}
	case error:
		return e
	default:
		return &Error{Message: fmt.Sprint(e), Value: e}
	}
}
