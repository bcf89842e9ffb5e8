package generators

import (
	"github.com/reusee/taitrace/configs"
)

type GeneratorSpec struct {
	Type string `json:"type"`
	GeneratorArgs
}

type GetGeneratorSpec func(path string) GeneratorSpec

func (Module) GetGeneratorSpec(
	loader configs.Loader,
) GetGeneratorSpec {
	return func(path string) GeneratorSpec {
		return configs.First[GeneratorSpec](loader, path)
	}
}
