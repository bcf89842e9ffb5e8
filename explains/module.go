package explains

import (
	"github.com/reusee/dscope"
	"github.com/reusee/taitrace/configs"
	"github.com/reusee/taitrace/debugs"
	"github.com/reusee/taitrace/logs"
	"github.com/reusee/taitrace/models"
)

type Module struct {
	dscope.Module
	Configs configs.Module
	Debugs  debugs.Module
	Logs    logs.Module
	Models  models.Module
}
