package servers

import (
	"github.com/reusee/dscope"
	"github.com/reusee/taitrace/configs"
	"github.com/reusee/taitrace/explains"
	"github.com/reusee/taitrace/logs"
	"github.com/reusee/taitrace/models"
	"github.com/reusee/taitrace/sandboxes"
)

type Module struct {
	dscope.Module
	Configs   configs.Module
	Explains  explains.Module
	Logs      logs.Module
	Models    models.Module
	Sandboxes sandboxes.Module
}
