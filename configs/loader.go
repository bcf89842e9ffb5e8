package configs

import (
	"fmt"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Loader reads cue files lazily. Lookups consult files in order and the first file defining a path wins.
type Loader struct {
	paths []string
	load  func() ([]cue.Value, error)
}

func NewLoader(filePaths []string, schemaSrc string) Loader {
	return Loader{
		paths: filePaths,
		load: sync.OnceValues(func() ([]cue.Value, error) {
			// schema and files must share a runtime to be unified
			ctx := cuecontext.New()

			var schema cue.Value
			if schemaSrc != "" {
				schema = ctx.CompileString("close({"+schemaSrc+"})", cue.Filename("schema.cue"))
				if err := schema.Err(); err != nil {
					return nil, fmt.Errorf("compile schema: %w", err)
				}
			}

			values := make([]cue.Value, 0, len(filePaths))
			for _, filePath := range filePaths {
				content, err := os.ReadFile(filePath)
				if err != nil {
					return nil, err
				}
				value := ctx.CompileBytes(content, cue.Filename(filePath))
				if err := value.Err(); err != nil {
					return nil, fmt.Errorf("compile %s: %w", filePath, err)
				}
				if schema.Exists() {
					if err := schema.Unify(value).Validate(); err != nil {
						return nil, fmt.Errorf("validate %s: %w", filePath, err)
					}
				}
				values = append(values, value)
			}
			return values, nil
		}),
	}
}

// Paths returns the config files in lookup order.
func (l Loader) Paths() []string {
	return l.paths
}

func (l Loader) AssignFirst(path string, target any) error {
	if l.load == nil {
		return ErrValueNotFound
	}
	values, err := l.load()
	if err != nil {
		return err
	}

	cuePath := cue.ParsePath(path)
	for i, root := range values {
		value := root.LookupPath(cuePath)
		if !value.Exists() {
			continue
		}
		if err := value.Decode(target); err != nil {
			return fmt.Errorf("decode %s in %s: %w", path, l.paths[i], err)
		}
		return nil
	}

	return ErrValueNotFound
}
