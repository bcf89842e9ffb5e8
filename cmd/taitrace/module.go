package main

import (
	"github.com/reusee/dscope"
	"github.com/reusee/taitrace/servers"
	"github.com/reusee/taitrace/traceconfigs"
)

type Module struct {
	dscope.Module
	Servers servers.Module
	Configs traceconfigs.Module
}
