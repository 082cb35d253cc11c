package unit

import (
	"fmt"
	"math"
	"math/big"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/ohler55/ojg/oj"
	"github.com/pelletier/go-toml/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/agentic-research/autoinit/api"
)

// JSONLoader reads a JSON object as a record unit.
type JSONLoader struct{}

func (JSONLoader) Load(fsys billy.Filesystem, path string) (api.Unit, error) {
	data, err := util.ReadFile(fsys, path)
	if err != nil {
		return api.Unit{}, err
	}
	parsed, err := oj.Parse(data)
	if err != nil {
		return api.Unit{}, fmt.Errorf("parse json: %w", err)
	}
	return recordOf(parsed)
}

// TOMLLoader reads a TOML document as a record unit.
type TOMLLoader struct{}

func (TOMLLoader) Load(fsys billy.Filesystem, path string) (api.Unit, error) {
	data, err := util.ReadFile(fsys, path)
	if err != nil {
		return api.Unit{}, err
	}
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return api.Unit{}, fmt.Errorf("parse toml: %w", err)
	}
	return recordOf(doc)
}

// HCLLoader reads the top-level attributes of an HCL file as a record unit.
// Blocks are not supported; attribute expressions are evaluated without
// variables or functions.
type HCLLoader struct{}

func (HCLLoader) Load(fsys billy.Filesystem, path string) (api.Unit, error) {
	data, err := util.ReadFile(fsys, path)
	if err != nil {
		return api.Unit{}, err
	}

	file, diags := hclparse.NewParser().ParseHCL(data, path)
	if diags.HasErrors() {
		return api.Unit{}, fmt.Errorf("parse hcl: %w", diags)
	}
	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return api.Unit{}, fmt.Errorf("decode hcl: %w", diags)
	}

	rec := make(api.Module, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return api.Unit{}, fmt.Errorf("evaluate %s: %w", name, diags)
		}
		rec[name] = fromCty(val)
	}
	return api.Record(rec), nil
}

func recordOf(v any) (api.Unit, error) {
	m, ok := normalize(v).(api.Module)
	if !ok {
		return api.Unit{}, fmt.Errorf("expected an object at the top level, got %T", v)
	}
	return api.Record(m), nil
}

// normalize converts decoded documents so that every object is an api.Module
// and every array is a []any.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(api.Module, len(t))
		for k, e := range t {
			m[k] = normalize(e)
		}
		return m
	case api.Module:
		m := make(api.Module, len(t))
		for k, e := range t {
			m[k] = normalize(e)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}

func fromCty(v cty.Value) any {
	if v.IsNull() || !v.IsKnown() {
		return nil
	}
	ty := v.Type()
	switch {
	case ty.Equals(cty.String):
		return v.AsString()
	case ty.Equals(cty.Bool):
		return v.True()
	case ty.Equals(cty.Number):
		return fromBigFloat(v.AsBigFloat())
	case ty.IsObjectType() || ty.IsMapType():
		m := make(api.Module)
		for it := v.ElementIterator(); it.Next(); {
			k, e := it.Element()
			m[k.AsString()] = fromCty(e)
		}
		return m
	case ty.IsListType() || ty.IsSetType() || ty.IsTupleType():
		out := []any{}
		for it := v.ElementIterator(); it.Next(); {
			_, e := it.Element()
			out = append(out, fromCty(e))
		}
		return out
	default:
		return nil
	}
}

func fromBigFloat(f *big.Float) any {
	if f.IsInt() {
		if i, acc := f.Int64(); acc == big.Exact {
			return i
		}
	}
	v, _ := f.Float64()
	if math.IsInf(v, 0) {
		return f.String()
	}
	return v
}
