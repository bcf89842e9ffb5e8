package generators

import (
	"context"
	"errors"
	"strings"

	"github.com/reusee/taitrace/logs"
	"github.com/reusee/taitrace/nets"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAI uses the legacy completions endpoint of OpenAI-compatible servers.
type OpenAI struct {
	args   GeneratorArgs
	client *openai.Client
	logger logs.Logger
}

var _ Generator = new(OpenAI)

type NewOpenAI func(args GeneratorArgs) *OpenAI

func (Module) NewOpenAI(
	httpClient nets.HTTPClient,
	logger logs.Logger,
) NewOpenAI {
	return func(args GeneratorArgs) *OpenAI {
		config := openai.DefaultConfig(args.APIKey)
		if args.BaseURL != "" {
			config.BaseURL = strings.TrimSuffix(args.BaseURL, "/")
		}
		config.HTTPClient = httpClient
		return &OpenAI{
			args:   args,
			client: openai.NewClientWithConfig(config),
			logger: logger,
		}
	}
}

func (o *OpenAI) Args() GeneratorArgs {
	return o.args
}

func (o *OpenAI) Generate(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	o.logger.DebugContext(ctx, "generating",
		"model", o.args.Model,
	)
	resp, err := doWithRetry(ctx, o.logger, func() (openai.CompletionResponse, error) {
		return o.client.CreateCompletion(ctx, openai.CompletionRequest{
			Model:       o.args.Model,
			Prompt:      prompt,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		})
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", classify(err, apiErr.Message)
		}
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return prompt + resp.Choices[0].Text, nil
}

// Check verifies that the model is served.
func (o *OpenAI) Check(ctx context.Context) error {
	_, err := o.client.GetModel(ctx, o.args.Model)
	return err
}
