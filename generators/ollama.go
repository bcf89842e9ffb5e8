package generators

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/reusee/taitrace/logs"
	"github.com/reusee/taitrace/nets"
)

// Ollama talks to the native Ollama API, which loads and evicts models on demand.
type Ollama struct {
	args   GeneratorArgs
	client nets.HTTPClient
	logger logs.Logger
}

var _ Generator = new(Ollama)

type NewOllama func(args GeneratorArgs) *Ollama

func (Module) NewOllama(
	client nets.HTTPClient,
	logger logs.Logger,
) NewOllama {
	return func(args GeneratorArgs) *Ollama {
		args.BaseURL = strings.TrimSuffix(args.BaseURL, "/")
		return &Ollama{
			args:   args,
			client: client,
			logger: logger,
		}
	}
}

type OllamaError struct {
	StatusCode int
	Message    string
}

func (o *OllamaError) Error() string {
	return fmt.Sprintf("ollama: status %d: %s", o.StatusCode, o.Message)
}

type ollamaOptions struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
	NumGPU      *int     `json:"num_gpu,omitempty"`
}

type ollamaRequest struct {
	Model     string         `json:"model"`
	Prompt    string         `json:"prompt,omitempty"`
	Raw       bool           `json:"raw,omitempty"`
	Stream    bool           `json:"stream"`
	KeepAlive *string        `json:"keep_alive,omitempty"`
	Options   *ollamaOptions `json:"options,omitempty"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

func (o *Ollama) Args() GeneratorArgs {
	return o.args
}

func (o *Ollama) Generate(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	o.logger.DebugContext(ctx, "generating",
		"model", o.args.Model,
	)
	resp, err := doWithRetry(ctx, o.logger, func() (*ollamaResponse, error) {
		return o.post(ctx, ollamaRequest{
			Model:  o.args.Model,
			Prompt: prompt,
			Raw:    true,
			Options: &ollamaOptions{
				NumPredict:  maxTokens,
				Temperature: &temperature,
				NumGPU:      o.args.NumGPU,
			},
		})
	})
	if err != nil {
		return "", err
	}
	return prompt + resp.Response, nil
}

// Load asks the server to load the model with the configured placement.
func (o *Ollama) Load(ctx context.Context) error {
	req := ollamaRequest{
		Model: o.args.Model,
	}
	if o.args.NumGPU != nil {
		req.Options = &ollamaOptions{
			NumGPU: o.args.NumGPU,
		}
	}
	_, err := o.post(ctx, req)
	return err
}

// Unload evicts the model, releasing its accelerator memory.
func (o *Ollama) Unload(ctx context.Context) error {
	zero := "0"
	_, err := o.post(ctx, ollamaRequest{
		Model:     o.args.Model,
		KeepAlive: &zero,
	})
	return err
}

func (o *Ollama) post(ctx context.Context, req ollamaRequest) (*ollamaResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.args.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	content, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	var resp ollamaResponse
	if err := json.Unmarshal(content, &resp); err != nil {
		if httpResp.StatusCode != http.StatusOK {
			return nil, &OllamaError{
				StatusCode: httpResp.StatusCode,
				Message:    string(content),
			}
		}
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK || resp.Error != "" {
		err := &OllamaError{
			StatusCode: httpResp.StatusCode,
			Message:    resp.Error,
		}
		return nil, classify(err, resp.Error)
	}
	return &resp, nil
}
