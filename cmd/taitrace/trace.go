package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/reusee/taitrace/explains"
	"github.com/reusee/taitrace/responses"
	"github.com/reusee/taitrace/sandboxes"
	"github.com/reusee/taitrace/tracing"
)

var errExplainDisabled = errors.New("explanations disabled")

// TraceFile runs a source file and writes the response as indented JSON.
type TraceFile func(ctx context.Context, path string, explain bool, w io.Writer) error

func (Module) TraceFile(
	sandbox *sandboxes.Sandbox,
	engine *explains.Engine,
) TraceFile {
	return func(ctx context.Context, path string, explain bool, w io.Writer) error {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		source := string(content)

		output, trace, err := sandbox.Run(ctx, source, nil)
		if err != nil {
			return err
		}
		steps := tracing.SerializeAll(trace)

		explanations, explainErr := []string(nil), errExplainDisabled
		if explain {
			explanations, explainErr = engine.ExplainAll(ctx, source, steps)
		}

		resp, err := responses.Assemble(steps, explanations, explainErr, output)
		if err != nil {
			return err
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(resp)
	}
}
