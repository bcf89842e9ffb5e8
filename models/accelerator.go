package models

import (
	"context"
	"os"
	"strings"

	"github.com/reusee/taitrace/cmds"
	"github.com/reusee/taitrace/configs"
	"github.com/reusee/taitrace/vars"
)

type Accelerator interface {
	Available(ctx context.Context) bool
	Reclaim(ctx context.Context) error
}

type AcceleratorMode string

const (
	AcceleratorAuto AcceleratorMode = "auto"
	AcceleratorOn   AcceleratorMode = "on"
	AcceleratorOff  AcceleratorMode = "off"
)

var acceleratorFlag = cmds.Var[string]("-accelerator", "accelerator mode: auto, on or off")

func (Module) AcceleratorMode(
	loader configs.Loader,
) AcceleratorMode {
	return AcceleratorMode(strings.ToLower(vars.FirstNonZero(
		*acceleratorFlag,
		configs.First[string](loader, "accelerator"),
		os.Getenv("TAITRACE_ACCELERATOR"),
		string(AcceleratorAuto),
	)))
}

// device nodes exposed by the NVIDIA and ROCm kernel drivers
var devicePaths = []string{
	"/dev/nvidia0",
	"/dev/kfd",
}

// Probe reports whether accelerator hardware is usable.
type Probe func(ctx context.Context) bool

func (Module) Probe(
	mode AcceleratorMode,
) Probe {
	return func(ctx context.Context) bool {
		switch mode {
		case AcceleratorOn:
			return true
		case AcceleratorOff:
			return false
		}
		for _, path := range devicePaths {
			if _, err := os.Stat(path); err == nil {
				return true
			}
		}
		return false
	}
}

// ollamaAccelerator fronts a model served by Ollama.
// The server owns accelerator memory and frees per-request buffers itself, so the model stays resident between chunks.
type ollamaAccelerator struct {
	probe Probe
}

var _ Accelerator = ollamaAccelerator{}

func (o ollamaAccelerator) Available(ctx context.Context) bool {
	return o.probe(ctx)
}

// Reclaim is a no-op. Evicting the model here would force a reload for every chunk.
func (o ollamaAccelerator) Reclaim(ctx context.Context) error {
	return nil
}
