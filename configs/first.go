package configs

import (
	"errors"
	"fmt"
)

// First decodes the first value defined at path, or returns the zero value.
// Invalid files and undecodable values panic.
func First[T any](loader Loader, path string) T {
	var value T
	if err := loader.AssignFirst(path, &value); err != nil {
		if errors.Is(err, ErrValueNotFound) {
			return value
		}
		panic(fmt.Errorf("config %s: %w", path, err))
	}
	return value
}
