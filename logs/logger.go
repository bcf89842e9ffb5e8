package logs

import (
	"context"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/reusee/taitrace/cmds"
	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

var level = new(slog.LevelVar)

var jsonFlag = cmds.Switch("-log-json", "write logs as json lines")

func init() {
	for name, l := range map[string]slog.Level{
		"-log-debug": slog.LevelDebug,
		"-log-info":  slog.LevelInfo,
		"-log-warn":  slog.LevelWarn,
		"-log-error": slog.LevelError,
	} {
		cmds.Define(name, cmds.Func(func() {
			level.Set(l)
		}).Desc("set log level to "+strings.ToLower(l.String())))
	}
}

type Logger = *slog.Logger

// LogJSON selects the json handler for the local writer.
type LogJSON bool

func (Module) LogJSON() LogJSON {
	return LogJSON(*jsonFlag)
}

func (Module) Logger(
	writer Writer,
	logJSON LogJSON,
) Logger {
	var handlers []slog.Handler

	// local writer, skipped under systemd where the journal gets everything
	var local slog.Handler
	if !underSystemd() {
		options := &slog.HandlerOptions{
			Level: level,
		}
		if logJSON {
			local = slog.NewJSONHandler(writer, options)
		} else {
			local = slog.NewTextHandler(writer, options)
		}
		handlers = append(handlers, local)
	}

	journal, err := slogjournal.NewHandler(&slogjournal.Options{
		Level: level,
		ReplaceGroup: func(key string) string {
			return toJournalKey(key)
		},
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			a.Key = toJournalKey(a.Key)
			return a
		},
	})
	if err == nil {
		handlers = append(handlers, journal)
	} else if local != nil {
		record := slog.NewRecord(time.Now(), slog.LevelDebug, "systemd journal unavailable", 0)
		record.Add("error", err)
		_ = local.Handle(context.Background(), record)
	}

	return slog.New(&Handler{
		Handler: slogmulti.Fanout(handlers...),
	})
}

func toJournalKey(str string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' ||
			r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, strings.ToUpper(str))
}

func underSystemd() bool {
	content, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return false
	}
	// hierarchy-ID:controller-list:cgroup-path
	parts := strings.SplitN(strings.TrimSpace(string(content)), ":", 3)
	if len(parts) < 3 {
		return false
	}
	return strings.HasSuffix(path.Dir(parts[2]), ".service")
}
