package explains

import (
	"github.com/reusee/taitrace/configs"
	"github.com/reusee/taitrace/vars"
)

type (
	MaxNewTokens int
	Temperature  float32
	CacheSize    int
)

func (Module) MaxNewTokens(
	loader configs.Loader,
) MaxNewTokens {
	return vars.FirstNonZero(
		configs.First[MaxNewTokens](loader, "max_new_tokens"),
		150,
	)
}

func (Module) Temperature(
	loader configs.Loader,
) Temperature {
	return vars.FirstNonZero(
		configs.First[Temperature](loader, "temperature"),
		0.7,
	)
}

// CacheSize is the number of cached explanations; zero disables caching.
func (Module) CacheSize(
	loader configs.Loader,
) CacheSize {
	size := configs.First[*CacheSize](loader, "explain_cache_size")
	if size == nil {
		return 256
	}
	return *size
}
