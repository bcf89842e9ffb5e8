package sandboxes

import (
	"github.com/reusee/taitrace/configs"
	"github.com/reusee/taitrace/vars"
)

type (
	MaxSteps          int
	MaxConcurrentRuns int
	// instructions per run, prelude builtins included
	MaxInstructions   int64
)

func (Module) MaxSteps(
	loader configs.Loader,
) MaxSteps {
	return vars.FirstNonZero(
		configs.First[MaxSteps](loader, "max_steps"),
		20000,
	)
}

func (Module) MaxConcurrentRuns(
	loader configs.Loader,
) MaxConcurrentRuns {
	return vars.FirstNonZero(
		configs.First[MaxConcurrentRuns](loader, "max_concurrent_runs"),
		8,
	)
}

func (Module) MaxInstructions(
	loader configs.Loader,
) MaxInstructions {
	return vars.FirstNonZero(
		configs.First[MaxInstructions](loader, "max_instructions"),
		10_000_000,
	)
}
