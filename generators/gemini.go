package generators

import (
	"context"
	"sync"

	"github.com/reusee/taitrace/logs"
	"github.com/reusee/taitrace/nets"
	"github.com/reusee/taitrace/vars"
	"google.golang.org/genai"
)

type Gemini struct {
	args      GeneratorArgs
	getClient GetGeminiClient
	logger    logs.Logger
}

var _ Generator = new(Gemini)

type NewGemini func(args GeneratorArgs) *Gemini

func (Module) NewGemini(
	getClient GetGeminiClient,
	logger logs.Logger,
) NewGemini {
	return func(args GeneratorArgs) *Gemini {
		return &Gemini{
			args:      args,
			getClient: getClient,
			logger:    logger,
		}
	}
}

func (g *Gemini) Args() GeneratorArgs {
	return g.args
}

func (g *Gemini) Generate(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	client, err := g.getClient(ctx, g.args.APIKey)
	if err != nil {
		return "", err
	}
	g.logger.DebugContext(ctx, "generating",
		"model", g.args.Model,
	)
	resp, err := doWithRetry(ctx, g.logger, func() (*genai.GenerateContentResponse, error) {
		return client.Models.GenerateContent(ctx, g.args.Model, genai.Text(prompt), &genai.GenerateContentConfig{
			MaxOutputTokens: int32(maxTokens),
			Temperature:     genai.Ptr(temperature),
		})
	})
	if err != nil {
		return "", err
	}
	return prompt + resp.Text(), nil
}

// Check verifies that the model exists.
func (g *Gemini) Check(ctx context.Context) error {
	client, err := g.getClient(ctx, g.args.APIKey)
	if err != nil {
		return err
	}
	_, err = client.Models.Get(ctx, g.args.Model, nil)
	return err
}

type GetGeminiClient = func(ctx context.Context, key string) (*genai.Client, error)

func (Module) GetGeminiClient(
	httpClient nets.HTTPClient,
	apiKey GoogleAPIKey,
) GetGeminiClient {
	var clients sync.Map // key -> *genai.Client
	return func(ctx context.Context, key string) (*genai.Client, error) {
		key = vars.FirstNonZero(
			key,
			string(apiKey),
		)

		if v, ok := clients.Load(key); ok {
			return v.(*genai.Client), nil
		}

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:     key,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, err
		}

		v, _ := clients.LoadOrStore(key, client)
		return v.(*genai.Client), nil
	}
}
