package configs

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

var testSchema = `
str?: string
list?: [...int]
nested?: {
	n?: int
}
`

func writeFile(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoaderAssignFirst(t *testing.T) {
	first := writeFile(t, "a.cue", `
str: "bar"
list: [1, 2, 3]
`)
	second := writeFile(t, "b.cue", `
str: "foo"
nested: n: 42
`)
	loader := NewLoader([]string{first, second}, testSchema)

	var str string
	if err := loader.AssignFirst("str", &str); err != nil {
		t.Fatal(err)
	}
	if str != "bar" {
		t.Fatalf("got %q", str)
	}

	var list []int
	if err := loader.AssignFirst("list", &list); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(list, []int{1, 2, 3}) {
		t.Fatalf("got %v", list)
	}

	var n int
	if err := loader.AssignFirst("nested.n", &n); err != nil {
		t.Fatal(err)
	}
	if n != 42 {
		t.Fatalf("got %d", n)
	}

	if err := loader.AssignFirst("not", &list); !errors.Is(err, ErrValueNotFound) {
		t.Fatalf("got %v", err)
	}

	if paths := loader.Paths(); !slices.Equal(paths, []string{first, second}) {
		t.Fatalf("got %v", paths)
	}
}

func TestLoaderEmpty(t *testing.T) {
	var str string
	if err := NewLoader(nil, "").AssignFirst("str", &str); !errors.Is(err, ErrValueNotFound) {
		t.Fatalf("got %v", err)
	}
	if err := (Loader{}).AssignFirst("str", &str); !errors.Is(err, ErrValueNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestUnknownField(t *testing.T) {
	path := writeFile(t, "bad.cue", `unknown_field: "foo"`)
	loader := NewLoader([]string{path}, testSchema)
	var str string
	err := loader.AssignFirst("str", &str)
	if err == nil || errors.Is(err, ErrValueNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestMissingFile(t *testing.T) {
	loader := NewLoader([]string{filepath.Join(t.TempDir(), "none.cue")}, "")
	var str string
	if err := loader.AssignFirst("str", &str); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("got %v", err)
	}
}
