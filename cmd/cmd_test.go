package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ohler55/ojg/oj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/autoinit/api"
)

// workspace writes a module tree and isolates the test from any config file
// in the working or home directory.
func workspace(t *testing.T) string {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	root := t.TempDir()
	files := map[string]string{
		"math/add.lua": `return function(a, b) return a + b end`,
		"svc.lua": `
return {
  init = function(ctx)
    return { port = 8080, region = ctx:get("region") }
  end,
}
`,
		"conf.json": `{"debug": true}`,
	}
	for name, src := range files {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(src), 0o644))
	}
	return root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.Execute()
	return stdout.String(), err
}

func TestTree(t *testing.T) {
	root := workspace(t)

	out, err := run(t, "tree", root, "--set", "region=eu")
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"math/",
		"  add()",
		"svc/",
		"  port = 8080",
		`  region = "eu"`,
		"",
	}, "\n"), out)
}

func TestTree_DataLoaders(t *testing.T) {
	root := workspace(t)

	out, err := run(t, "tree", root, "--data")
	require.NoError(t, err)
	assert.Contains(t, out, "conf/\n  debug = true\n")
	assert.NotContains(t, out, "region", "unset context keys read as nil")
}

func TestTree_NeedsRootOrDB(t *testing.T) {
	workspace(t)

	_, err := run(t, "tree")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "either a root directory or --db")
}

func TestGet(t *testing.T) {
	root := workspace(t)

	out, err := run(t, "get", root, "$.svc.region", "--set", "region=us")
	require.NoError(t, err)
	assert.Equal(t, "\"us\"\n", out)

	out, err = run(t, "get", root, "$.math")
	require.NoError(t, err)
	assert.Equal(t, "{\"add\":\"<func>\"}\n", out)

	_, err = run(t, "get", root, "$.nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no match")
}

func TestCall(t *testing.T) {
	root := workspace(t)

	out, err := run(t, "call", root, "math.add", "2", "3")
	require.NoError(t, err)
	assert.Equal(t, "5\n", out)

	_, err = run(t, "call", root, "svc.port")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a function")
}

func TestBuildThenTreeFromDB(t *testing.T) {
	root := workspace(t)
	db := filepath.Join(t.TempDir(), "tree.db")

	out, err := run(t, "build", root, db, "--set", "region=eu")
	require.NoError(t, err)
	assert.Equal(t, db+": 2 modules, 1 functions, 2 values\n", out)

	fromDB, err := run(t, "tree", "--db", db)
	require.NoError(t, err)
	fromDir, err := run(t, "tree", root, "--set", "region=eu")
	require.NoError(t, err)
	assert.Equal(t, fromDir, fromDB)
}

func TestScan(t *testing.T) {
	root := workspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, api.MetaFileName), []byte(`{"owner": "core"}`), 0o644))

	out, err := run(t, "scan", root)
	require.NoError(t, err)

	parsed, err := oj.ParseString(out)
	require.NoError(t, err)
	report := parsed.(map[string]any)
	assert.Equal(t, map[string]any{"owner": "core"}, report["metadata"])

	var names []string
	for _, e := range report["entries"].([]any) {
		entry := e.(map[string]any)
		names = append(names, entry["kind"].(string)+":"+entry["name"].(string))
	}
	assert.Equal(t, []string{"namespace:math", "unit:svc"}, names, "json units need --data")
}

func TestConfigFileSeedsContext(t *testing.T) {
	root := workspace(t)
	require.NoError(t, os.WriteFile(".autoinit.toml", []byte("[context]\nregion = \"ap\"\n"), 0o644))

	out, err := run(t, "get", root, "$.svc.region")
	require.NoError(t, err)
	assert.Equal(t, "\"ap\"\n", out)

	out, err = run(t, "get", root, "$.svc.region", "--set", "region=eu")
	require.NoError(t, err)
	assert.Equal(t, "\"eu\"\n", out, "--set beats the config file")
}

func TestInvalidFlags(t *testing.T) {
	root := workspace(t)

	_, err := run(t, "tree", root, "--set", "novalue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want key=value")

	_, err = run(t, "tree", root, "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log-level")
}

func TestErrorsFromCompositionSurface(t *testing.T) {
	root := workspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "math.lua"), []byte(`return function() end`), 0o644))

	_, err := run(t, "tree", root)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrOverload)
}
