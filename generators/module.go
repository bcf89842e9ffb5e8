package generators

import (
	"github.com/reusee/dscope"
	"github.com/reusee/taitrace/configs"
	"github.com/reusee/taitrace/logs"
	"github.com/reusee/taitrace/nets"
)

type Module struct {
	dscope.Module
	Configs configs.Module
	Nets    nets.Module
	Logs    logs.Module
}
