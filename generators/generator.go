package generators

import (
	"context"
	"fmt"
	"strings"
)

// Generator completes raw prompts.
// The returned text is the prompt followed by the generated continuation.
type Generator interface {
	Args() GeneratorArgs
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error)
}

type NewGenerator func(spec GeneratorSpec) (Generator, error)

func (Module) NewGenerator(
	newOllama NewOllama,
	newOpenAI NewOpenAI,
	newGemini NewGemini,
	openAIKey OpenAIAPIKey,
	ollamaURL OllamaURL,
) NewGenerator {
	return func(spec GeneratorSpec) (Generator, error) {
		switch strings.ToLower(spec.Type) {
		case "ollama", "":
			if spec.BaseURL == "" {
				spec.BaseURL = string(ollamaURL)
			}
			return newOllama(spec.GeneratorArgs), nil
		case "openai", "open-ai", "open_ai":
			if spec.APIKey == "" {
				spec.APIKey = string(openAIKey)
			}
			return newOpenAI(spec.GeneratorArgs), nil
		case "gemini":
			return newGemini(spec.GeneratorArgs), nil
		}
		return nil, fmt.Errorf("unknown generator type: %q", spec.Type)
	}
}
