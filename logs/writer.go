package logs

import (
	"io"
	"os"
	"sync"

	"github.com/reusee/taitrace/cmds"
)

type Writer io.Writer

var fileFlag = cmds.Var[string]("-log-file", "append logs to a file instead of stderr")

// openLogFile is shared by all scopes so the file is opened once.
var openLogFile = sync.OnceValues(func() (*os.File, error) {
	return os.OpenFile(*fileFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
})

func (Module) Writer() Writer {
	if *fileFlag == "" {
		return os.Stderr
	}
	f, err := openLogFile()
	if err != nil {
		// fall back to stderr
		return os.Stderr
	}
	return f
}
