package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/autoinit/api"
)

func sample() api.Module {
	return api.Module{
		"svc": api.Module{
			"port":  8080,
			"start": api.Func(func(...any) (any, error) { return nil, nil }),
			"hosts": []any{"a", api.Module{"name": "b"}},
		},
		"db": api.Module{"port": 5432},
	}
}

func TestPlain(t *testing.T) {
	m := sample()
	got := Plain(m)

	assert.Equal(t, map[string]any{
		"svc": map[string]any{
			"port":  8080,
			"start": FuncPlaceholder,
			"hosts": []any{"a", map[string]any{"name": "b"}},
		},
		"db": map[string]any{"port": 5432},
	}, got)
	assert.True(t, api.IsFunc(m["svc"].(api.Module)["start"]), "input is left alone")
}

func TestJSON_SortsKeys(t *testing.T) {
	out := JSON(api.Module{"b": 1, "a": api.Module{"f": api.Func(nil)}}, 0)
	assert.Equal(t, `{"a":{"f":"<func>"},"b":1}`, out)
}

func TestJSON_Indent(t *testing.T) {
	out := JSON(api.Module{"a": 1, "b": api.Module{"c": true}}, 2)
	assert.Contains(t, out, "\n  \"a\"")
	assert.JSONEq(t, `{"a": 1, "b": {"c": true}}`, out)
}

func TestGet(t *testing.T) {
	got, err := Get(sample(), "$.svc.port")
	require.NoError(t, err)
	assert.Equal(t, []any{8080}, got)

	got, err = Get(sample(), "$..port")
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{8080, 5432}, got)

	got, err = Get(sample(), "$.svc.start")
	require.NoError(t, err)
	assert.Equal(t, []any{FuncPlaceholder}, got)

	got, err = Get(sample(), "$.missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGet_InvalidExpression(t *testing.T) {
	_, err := Get(sample(), "$.svc[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid jsonpath")
}
