package models

import (
	"context"
	"errors"
	"strings"

	"github.com/reusee/taitrace/cmds"
	"github.com/reusee/taitrace/generators"
	"github.com/reusee/taitrace/vars"
)

var ErrNoAccelerator = errors.New("no accelerator available")

// Strategy is one way to obtain a working model.
type Strategy struct {
	Tier Tier
	Load func(ctx context.Context) (*Handle, error)
}

// Strategies are tried in order until one succeeds.
type Strategies []Strategy

var (
	acceleratedModelFlag = cmds.Var[string]("-model-accelerated", "model for the accelerated tier")
	generalModelFlag     = cmds.Var[string]("-model-general", "model for the general tier")
)

const (
	defaultAcceleratedModel = "llama2:7b-chat-q4_K_M"
	defaultGeneralModel     = "llama2:7b-chat-fp16"
	defaultOpenAIModel      = "gpt-3.5-turbo-instruct"
	defaultGeminiModel      = "gemini-2.0-flash"
)

func (Module) Strategies(
	probe Probe,
	newOllama generators.NewOllama,
	newGenerator generators.NewGenerator,
	getSpec generators.GetGeneratorSpec,
	ollamaURL generators.OllamaURL,
) Strategies {
	return Strategies{
		{
			Tier: TierAccelerated,
			Load: func(ctx context.Context) (*Handle, error) {
				if !probe(ctx) {
					return nil, ErrNoAccelerator
				}
				spec := getSpec("accelerated")
				spec.Model = vars.FirstNonZero(
					*acceleratedModelFlag,
					spec.Model,
					defaultAcceleratedModel,
				)
				spec.BaseURL = vars.FirstNonZero(spec.BaseURL, string(ollamaURL))
				ollama := newOllama(spec.GeneratorArgs)
				if err := ollama.Load(ctx); err != nil {
					return nil, err
				}
				return &Handle{
					Tier:      TierAccelerated,
					Generator: ollama,
					Accelerator: ollamaAccelerator{
						probe: probe,
					},
				}, nil
			},
		},

		{
			Tier: TierGeneral,
			Load: func(ctx context.Context) (*Handle, error) {
				spec := getSpec("general")
				switch strings.ToLower(spec.Type) {
				case "openai", "open-ai", "open_ai":
					spec.Model = vars.FirstNonZero(*generalModelFlag, spec.Model, defaultOpenAIModel)
				case "gemini":
					spec.Model = vars.FirstNonZero(*generalModelFlag, spec.Model, defaultGeminiModel)
				default:
					spec.Model = vars.FirstNonZero(*generalModelFlag, spec.Model, defaultGeneralModel)
					if spec.NumGPU == nil {
						// keep every layer on the CPU
						spec.NumGPU = new(int)
					}
				}
				generator, err := newGenerator(spec)
				if err != nil {
					return nil, err
				}
				if err := warmUp(ctx, generator); err != nil {
					return nil, err
				}
				return &Handle{
					Tier:      TierGeneral,
					Generator: generator,
				}, nil
			},
		},
	}
}

func warmUp(ctx context.Context, generator generators.Generator) error {
	switch generator := generator.(type) {
	case interface{ Load(context.Context) error }:
		return generator.Load(ctx)
	case interface{ Check(context.Context) error }:
		return generator.Check(ctx)
	}
	return nil
}
