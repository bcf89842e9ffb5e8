package configs

import (
	"strings"
	"testing"
)

func TestFirst(t *testing.T) {
	path := writeFile(t, "a.cue", `
str: "bar"
`)
	loader := NewLoader([]string{path}, testSchema)

	if str := First[string](loader, "str"); str != "bar" {
		t.Fatalf("got %v", str)
	}
	if list := First[[]int](loader, "list"); list != nil {
		t.Fatalf("got %v", list)
	}
	if p := First[*string](loader, "str"); p == nil || *p != "bar" {
		t.Fatalf("got %v", p)
	}
}

func TestFirstDecodeError(t *testing.T) {
	path := writeFile(t, "a.cue", `
str: "bar"
`)
	loader := NewLoader([]string{path}, testSchema)
	func() {
		defer func() {
			p := recover()
			err, ok := p.(error)
			if !ok || !strings.HasPrefix(err.Error(), "config str:") {
				t.Fatalf("got %v", p)
			}
		}()
		First[int](loader, "str")
	}()
}
