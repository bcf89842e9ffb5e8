package modes

import (
	"fmt"
	"os"

	"github.com/reusee/taitrace/cmds"
	"github.com/reusee/taitrace/vars"
)

type Mode uint8

const (
	ModeProduction Mode = iota + 1
	ModeDevelopment
)

func (m Mode) String() string {
	switch m {
	case ModeProduction:
		return "production"
	case ModeDevelopment:
		return "development"
	}
	return "unknown"
}

func ParseMode(str string) (Mode, error) {
	switch str {
	case "production", "prod":
		return ModeProduction, nil
	case "development", "dev":
		return ModeDevelopment, nil
	}
	return 0, fmt.Errorf("unknown mode: %q", str)
}

var modeFlag = cmds.Var[string]("-mode", "run mode: production or development")

// FromFlags selects the run mode from -mode, then TAITRACE_MODE, defaulting to production.
func FromFlags() (ModuleForMode, error) {
	str := vars.FirstNonZero(
		*modeFlag,
		os.Getenv("TAITRACE_MODE"),
		"production",
	)
	mode, err := ParseMode(str)
	if err != nil {
		return ModuleForMode{}, err
	}
	return ModuleForMode{mode: mode}, nil
}
