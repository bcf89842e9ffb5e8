package debugs

import (
	"context"
	"maps"
	"slices"

	"github.com/reusee/taitrace/cmds"
	"github.com/reusee/taitrace/logs"
	"go.starlark.net/repl"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Tap pauses in a starlark REPL with globals bound, for inspecting intermediate values.
// It returns immediately unless enabled.
type Tap func(ctx context.Context, what string, globals map[string]any)

type TapEnabled bool

var tapFlag = cmds.Switch("-tap", "open a repl before each explanation")

func (Module) TapEnabled() TapEnabled {
	return TapEnabled(*tapFlag)
}

func (Module) Tap(
	logger logs.Logger,
	enabled TapEnabled,
) Tap {
	return func(ctx context.Context, what string, globals map[string]any) {
		if !enabled {
			return
		}
		names := slices.Sorted(maps.Keys(globals))
		logger.InfoContext(ctx, "tap: "+what,
			"globals", names,
		)
		defer func() {
			logger.InfoContext(ctx, "tap end: "+what)
		}()

		mappings := make(starlark.StringDict, len(globals))
		for _, name := range names {
			mappings[name] = toStarlarkValue(globals[name])
		}

		thread := &starlark.Thread{
			Name: "tap",
		}
		repl.REPLOptions(&syntax.FileOptions{
			Set:             true,
			While:           true,
			TopLevelControl: true,
		}, thread, mappings)
	}
}
