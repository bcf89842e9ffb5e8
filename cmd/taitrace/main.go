package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/reusee/dscope"
	"github.com/reusee/taitrace/cmds"
	"github.com/reusee/taitrace/logs"
	"github.com/reusee/taitrace/modes"
	"github.com/reusee/taitrace/sandboxes"
	"github.com/reusee/taitrace/servers"
	"github.com/reusee/taitrace/telemetry"
)

var (
	traceFlag   = cmds.Var[string]("-trace", "trace a source file and print the result")
	explainFlag = cmds.Switch("-explain", "explain steps in -trace mode")
)

func main() {
	_ = godotenv.Load()
	if err := cmds.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer shutdown(context.WithoutCancel(ctx))

	mode, err := modes.FromFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	scope := dscope.New(
		new(Module),
		mode,
	)

	if *traceFlag != "" {
		scope.Call(func(
			traceFile TraceFile,
		) {
			err = traceFile(ctx, *traceFlag, *explainFlag, os.Stdout)
		})
		var fault *sandboxes.UserCodeFault
		if errors.As(err, &fault) {
			fmt.Fprintln(os.Stderr, "Execution error: "+fault.Message)
			os.Exit(1)
		} else if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	scope.Call(func(
		serve servers.Serve,
		logger logs.Logger,
	) {
		if err := serve(ctx); err != nil {
			logger.Error("serve", "error", err)
			os.Exit(1)
		}
	})
}
