// Package query renders composed modules as plain JSON values and evaluates
// JSONPath expressions against them.
package query

import (
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/agentic-research/autoinit/api"
)

// FuncPlaceholder stands in for functions, which have no JSON form.
const FuncPlaceholder = "<func>"

// Plain converts v into JSON-safe values. Modules become map[string]any and
// functions become FuncPlaceholder; v itself is not modified.
func Plain(v any) any {
	switch x := v.(type) {
	case api.Module:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = Plain(e)
		}
		return out
	case map[string]any:
		return Plain(api.Module(x))
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Plain(e)
		}
		return out
	case api.Func, func(...any) (any, error):
		return FuncPlaceholder
	default:
		return v
	}
}

// JSON renders v with sorted keys. indent of zero renders on one line.
func JSON(v any, indent int) string {
	return oj.JSON(Plain(v), &oj.Options{Sort: true, Indent: indent})
}

// Get evaluates a JSONPath expression against the plain form of m.
func Get(m api.Module, expr string) ([]any, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", expr, err)
	}
	return x.Get(Plain(m)), nil
}
