package traceconfigs

import (
	_ "embed"
	"os"
	"path/filepath"

	"github.com/reusee/taitrace/cmds"
	"github.com/reusee/taitrace/configs"
	"github.com/reusee/taitrace/logs"
)

//go:embed schema.cue
var Schema string

var configFlag = cmds.Collect[string]("-config", "load an extra cue config file")

var filenames = []string{
	"taitrace.cue",
	".taitrace.cue",
}

// SearchDirs lists directories searched for config files, highest priority first.
type SearchDirs []string

func (Module) SearchDirs() SearchDirs {
	var dirs SearchDirs
	if workingDir, err := os.Getwd(); err == nil {
		dirs = append(dirs, workingDir)
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, configDir)
	}
	dirs = append(dirs, "/etc")
	return dirs
}

// ConfigsLoader loads files given by -config, then files found in the search dirs.
// Earlier files take precedence.
func (Module) ConfigsLoader(
	logger logs.Logger,
	dirs SearchDirs,
) configs.Loader {
	paths := append([]string(nil), *configFlag...)
	for _, dir := range dirs {
		for _, filename := range filenames {
			path := filepath.Join(dir, filename)
			if _, err := os.Stat(path); err == nil {
				paths = append(paths, path)
			}
		}
	}
	if len(paths) > 0 {
		logger.Info("config file",
			"paths", paths,
		)
	}
	return configs.NewLoader(paths, Schema)
}
