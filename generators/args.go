package generators

type GeneratorArgs struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	// NumGPU is the number of layers offloaded to the accelerator, nil for the server default
	NumGPU *int `json:"num_gpu"`
}
