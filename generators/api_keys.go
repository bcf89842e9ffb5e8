package generators

import (
	"os"

	"github.com/reusee/taitrace/configs"
	"github.com/reusee/taitrace/vars"
)

type (
	GoogleAPIKey string
	OpenAIAPIKey string
	OllamaURL    string
)

func (Module) GoogleAPIKey(
	loader configs.Loader,
) GoogleAPIKey {
	return vars.FirstNonZero(
		configs.First[GoogleAPIKey](loader, "google_api_key"),
		GoogleAPIKey(os.Getenv("GOOGLE_API_KEY")),
		GoogleAPIKey(os.Getenv("GEMINI_API_KEY")),
	)
}

func (Module) OpenAIAPIKey(
	loader configs.Loader,
) OpenAIAPIKey {
	return vars.FirstNonZero(
		configs.First[OpenAIAPIKey](loader, "openai_api_key"),
		OpenAIAPIKey(os.Getenv("OPENAI_API_KEY")),
	)
}

func (Module) OllamaURL(
	loader configs.Loader,
) OllamaURL {
	return vars.FirstNonZero(
		configs.First[OllamaURL](loader, "ollama_url"),
		OllamaURL(os.Getenv("OLLAMA_HOST")),
		OllamaURL("http://127.0.0.1:11434"),
	)
}
