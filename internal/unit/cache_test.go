package unit

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/autoinit/api"
)

func countingRegistry(loads *atomic.Int32, unit api.Unit, err error) *Registry {
	r := &Registry{loaders: make(map[string]api.Loader)}
	r.Register("go", api.LoaderFunc(func(billy.Filesystem, string) (api.Unit, error) {
		loads.Add(1)
		return unit, err
	}))
	return r
}

func TestCache_LoadsEachLocationOnce(t *testing.T) {
	var loads atomic.Int32
	c := NewCache(countingRegistry(&loads, api.Record(api.Module{"a": 1}), nil))

	first, err := c.Load(nil, "/m/a.go", ".go")
	require.NoError(t, err)
	second, err := c.Load(nil, "/m/a.go", ".go")
	require.NoError(t, err)

	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, first.Record, second.Record)
	assert.Equal(t, 1, c.Len())

	_, err = c.Load(nil, "/m/b.go", ".go")
	require.NoError(t, err)
	assert.Equal(t, int32(2), loads.Load())
}

func TestCache_KeysByFilesystem(t *testing.T) {
	var loads atomic.Int32
	c := NewCache(countingRegistry(&loads, api.Record(api.Module{}), nil))
	first, second := memfs.New(), memfs.New()

	for _, fsys := range []billy.Filesystem{first, second, first} {
		_, err := c.Load(fsys, "/m/a.go", ".go")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), loads.Load())
	assert.Equal(t, 2, c.Len())
}

func TestCache_ConcurrentLoads(t *testing.T) {
	var loads atomic.Int32
	c := NewCache(countingRegistry(&loads, api.Record(api.Module{}), nil))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Load(nil, "/m/shared.go", ".go")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int32(1), loads.Load())
}

func TestCache_FailuresAreNotCached(t *testing.T) {
	var loads atomic.Int32
	boom := errors.New("boom")
	c := NewCache(countingRegistry(&loads, api.Unit{}, boom))

	_, err := c.Load(nil, "/m/a.go", ".go")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "load unit /m/a.go")

	_, err = c.Load(nil, "/m/a.go", ".go")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), loads.Load())
	assert.Equal(t, 0, c.Len())
}

func TestCache_RejectsMalformedUnits(t *testing.T) {
	var loads atomic.Int32
	c := NewCache(countingRegistry(&loads, api.Unit{Kind: api.KindInitializable}, nil))

	_, err := c.Load(nil, "/m/a.go", ".go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no initializer")
}

func TestCache_UnknownSuffix(t *testing.T) {
	c := NewCache(NewRegistry())

	_, err := c.Load(nil, "/m/a.py", ".py")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no loader registered for ".py"`)
}

func TestRegistry_Suffixes(t *testing.T) {
	assert.Equal(t, []string{".lua"}, NewRegistry().Suffixes())
	assert.Equal(t, []string{".hcl", ".json", ".lua", ".toml"}, NewRegistry().WithDataLoaders().Suffixes())
}
