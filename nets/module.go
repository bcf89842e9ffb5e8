package nets

import (
	"github.com/reusee/dscope"
	"github.com/reusee/taitrace/configs"
	"github.com/reusee/taitrace/logs"
)

type Module struct {
	dscope.Module
	Configs configs.Module
	Logs    logs.Module
}
