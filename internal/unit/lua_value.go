package unit

import (
	"math"

	"github.com/Shopify/go-lua"

	"github.com/agentic-research/autoinit/api"
)

const contextTypeName = "autoinit.context"

// registerContextType installs the metatable used for KeyValue shared
// contexts: ctx:get(key) and ctx:set(key, value).
func registerContextType(state *lua.State) {
	lua.NewMetaTable(state, contextTypeName)
	state.NewTable()
	lua.SetFunctions(state, contextMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)
}

var contextMethods = []lua.RegistryFunction{
	{Name: "get", Function: contextGet},
	{Name: "set", Function: contextSet},
}

func checkContext(state *lua.State) api.KeyValue {
	ud := lua.CheckUserData(state, 1, contextTypeName)
	if kv, ok := ud.(api.KeyValue); ok && kv != nil {
		return kv
	}
	lua.ArgumentError(state, 1, "context expected")
	return nil
}

func contextGet(state *lua.State) int {
	kv := checkContext(state)
	key := lua.CheckString(state, 2)
	v, ok := kv.Get(key)
	if !ok {
		state.PushNil()
		return 1
	}
	pushValue(state, v)
	return 1
}

func contextSet(state *lua.State) int {
	kv := checkContext(state)
	key := lua.CheckString(state, 2)
	kv.Set(key, plainValue(state, 3))
	return 0
}

// pushValue pushes a Go value onto the Lua stack.
func pushValue(state *lua.State, v any) {
	lua.CheckStackWithMessage(state, 2, "nested value")
	switch t := v.(type) {
	case nil:
		state.PushNil()
	case bool:
		state.PushBoolean(t)
	case string:
		state.PushString(t)
	case int:
		state.PushInteger(t)
	case int64:
		state.PushNumber(float64(t))
	case float64:
		state.PushNumber(t)
	case api.Func:
		state.PushGoFunction(goFunction(t))
	case api.KeyValue:
		state.PushUserData(t)
		lua.SetMetaTableNamed(state, contextTypeName)
	case api.Module:
		pushTable(state, t)
	case map[string]any:
		pushTable(state, t)
	case []any:
		state.NewTable()
		for i, e := range t {
			state.PushInteger(i + 1)
			pushValue(state, e)
			state.SetTable(-3)
		}
	default:
		state.PushUserData(t)
	}
}

func pushTable(state *lua.State, m map[string]any) {
	state.NewTable()
	for k, e := range m {
		pushValue(state, e)
		state.SetField(-2, k)
	}
}

// goFunction exposes an api.Func to Lua. Errors are raised as Lua errors.
func goFunction(fn api.Func) lua.Function {
	return func(state *lua.State) int {
		n := state.Top()
		args := make([]any, n)
		for i := 1; i <= n; i++ {
			args[i-1] = plainValue(state, i)
		}
		out, err := fn(args...)
		if err != nil {
			lua.Errorf(state, "%s", err.Error())
			return 0
		}
		pushValue(state, out)
		return 1
	}
}

// toGo converts the value at index. Functions are pinned and wrapped as
// api.Func so they remain callable after the stack unwinds.
func (vm *luaVM) toGo(index int) any {
	return newConverter(vm.state, vm.funcAt).value(index)
}

func (vm *luaVM) tableToModule(index int) api.Module {
	m, _ := newConverter(vm.state, vm.funcAt).table(index, false).(api.Module)
	if m == nil {
		return api.Module{}
	}
	return m
}

// plainValue converts without a VM: functions passed from Lua into Go
// callbacks are dropped.
func plainValue(state *lua.State, index int) any {
	return newConverter(state, nil).value(index)
}

// converter turns Lua values into Go values. A table that is reached again
// while it is still being converted (M.__index = M) converts to nil, and the
// field holding it is dropped.
type converter struct {
	state *lua.State
	wrap  func(int) api.Func
	open  map[any]struct{}
}

func newConverter(state *lua.State, wrap func(int) api.Func) *converter {
	return &converter{state: state, wrap: wrap, open: make(map[any]struct{})}
}

func (c *converter) value(index int) any {
	state := c.state
	switch state.TypeOf(index) {
	case lua.TypeString:
		v, _ := state.ToString(index)
		return v
	case lua.TypeNumber:
		v, _ := state.ToNumber(index)
		return normalizeNumber(v)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return c.table(index, true)
	case lua.TypeFunction:
		if c.wrap == nil {
			return nil
		}
		return c.wrap(index)
	case lua.TypeUserData:
		return state.ToUserData(index)
	default:
		return nil
	}
}

// table returns a []any for sequences when sequences is set and an
// api.Module otherwise. Only string keys are kept in a Module.
func (c *converter) table(index int, sequences bool) any {
	state := c.state
	index = state.AbsIndex(index)
	id := state.ToValue(index)
	if _, ok := c.open[id]; ok {
		return nil
	}
	// Each level holds a key, a value and one scratch slot.
	if !state.CheckStack(3) {
		return nil
	}
	c.open[id] = struct{}{}
	defer delete(c.open, id)

	if sequences {
		if n, ok := c.sequenceLen(index); ok {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				state.RawGetInt(index, i)
				out = append(out, c.value(-1))
				state.Pop(1)
			}
			return out
		}
	}

	out := api.Module{}
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			if v := c.value(-1); v != nil {
				out[key] = v
			}
		}
		state.Pop(1)
	}
	return out
}

// sequenceLen reports whether the table at index has exactly the keys 1..n.
func (c *converter) sequenceLen(index int) (int, bool) {
	state := c.state
	maxIndex, count := 0, 0
	isArray := true
	state.PushNil()
	for state.Next(index) {
		count++
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}
	return maxIndex, isArray && count > 0 && maxIndex == count
}

func normalizeNumber(v float64) any {
	if math.Mod(v, 1) == 0 && math.Abs(v) < 1<<53 {
		return int(v)
	}
	return v
}
