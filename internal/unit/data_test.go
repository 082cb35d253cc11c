package unit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/autoinit/api"
)

func TestJSONLoader(t *testing.T) {
	fs := luaFS(t, map[string]string{
		"/conf.json": `{"name": "svc", "port": 8080, "tls": {"enabled": true}, "hosts": ["a", "b"]}`,
	})

	u, err := JSONLoader{}.Load(fs, "/conf.json")
	require.NoError(t, err)
	require.Equal(t, api.KindRecord, u.Kind)
	assert.Equal(t, "svc", u.Record["name"])
	assert.EqualValues(t, 8080, u.Record["port"])
	assert.Equal(t, api.Module{"enabled": true}, u.Record["tls"])
	assert.Equal(t, []any{"a", "b"}, u.Record["hosts"])
}

func TestJSONLoader_RejectsNonObjects(t *testing.T) {
	fs := luaFS(t, map[string]string{
		"/list.json": `[1, 2, 3]`,
		"/bad.json":  `{"a": `,
	})

	_, err := JSONLoader{}.Load(fs, "/list.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected an object")

	_, err = JSONLoader{}.Load(fs, "/bad.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse json")
}

func TestTOMLLoader(t *testing.T) {
	fs := luaFS(t, map[string]string{
		"/db.toml": `
driver = "sqlite"
pool = 4

[retry]
attempts = 3
`,
	})

	u, err := TOMLLoader{}.Load(fs, "/db.toml")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", u.Record["driver"])
	assert.EqualValues(t, 4, u.Record["pool"])
	retry, ok := u.Record["retry"].(api.Module)
	require.True(t, ok, "nested tables become modules")
	assert.EqualValues(t, 3, retry["attempts"])
}

func TestTOMLLoader_ParseError(t *testing.T) {
	fs := luaFS(t, map[string]string{"/bad.toml": `driver = `})

	_, err := TOMLLoader{}.Load(fs, "/bad.toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse toml")
}

func TestHCLLoader(t *testing.T) {
	fs := luaFS(t, map[string]string{
		"/limits.hcl": `
name     = "limits"
max      = 10
ratio    = 1.5
enabled  = true
regions  = ["eu", "us"]
owner    = { team = "core" }
`,
	})

	u, err := HCLLoader{}.Load(fs, "/limits.hcl")
	require.NoError(t, err)
	assert.Equal(t, "limits", u.Record["name"])
	assert.Equal(t, int64(10), u.Record["max"])
	assert.Equal(t, 1.5, u.Record["ratio"])
	assert.Equal(t, true, u.Record["enabled"])
	assert.Equal(t, []any{"eu", "us"}, u.Record["regions"])
	assert.Equal(t, api.Module{"team": "core"}, u.Record["owner"])
}

func TestHCLLoader_BlocksAreRejected(t *testing.T) {
	fs := luaFS(t, map[string]string{
		"/blocks.hcl": `
service "web" {
  port = 80
}
`,
	})

	_, err := HCLLoader{}.Load(fs, "/blocks.hcl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode hcl")
}
