package servers

import (
	"os"
	"strings"

	"github.com/reusee/taitrace/cmds"
	"github.com/reusee/taitrace/configs"
	"github.com/reusee/taitrace/vars"
)

type (
	ListenAddr     string
	AllowedOrigins []string
)

var listenFlag = cmds.Var[string]("-listen", "http listen address")

func (Module) ListenAddr(
	loader configs.Loader,
) ListenAddr {
	return ListenAddr(vars.FirstNonZero(
		*listenFlag,
		configs.First[string](loader, "listen"),
		os.Getenv("TAITRACE_LISTEN"),
		":8000",
	))
}

func (Module) AllowedOrigins(
	loader configs.Loader,
) AllowedOrigins {
	if origins := configs.First[[]string](loader, "allowed_origins"); len(origins) > 0 {
		return origins
	}
	if env := os.Getenv("TAITRACE_ALLOWED_ORIGINS"); env != "" {
		return strings.Split(env, ",")
	}
	return AllowedOrigins{"*"}
}
