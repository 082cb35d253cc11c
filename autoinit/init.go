package autoinit

import (
	"context"
	"sync"

	"github.com/agentic-research/autoinit/api"
	"github.com/agentic-research/autoinit/internal/unit"
)

var (
	defaultOnce     sync.Once
	defaultComposer *Composer
)

// Default returns the process-wide composer. Its unit cache is shared by
// every Init call, so each Lua file is loaded at most once per process.
func Default() *Composer {
	defaultOnce.Do(func() {
		defaultComposer = New(WithCache(unit.NewCache(unit.NewRegistry())))
	})
	return defaultComposer
}

// Init composes the directory tree at root with the default composer.
// shared may be nil.
func Init(ctx context.Context, root string, shared any) (api.Module, error) {
	return Default().Init(ctx, root, shared)
}
