package traceconfigs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reusee/dscope"
	"github.com/reusee/taitrace/configs"
	"github.com/reusee/taitrace/modes"
)

func TestConfigsLoader(t *testing.T) {
	high := t.TempDir()
	low := t.TempDir()
	if err := os.WriteFile(filepath.Join(high, "taitrace.cue"), []byte(`
max_steps: 100
general: {
	type: "openai"
	model: "gpt"
}
`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(low, ".taitrace.cue"), []byte(`
max_steps: 5
listen: ":9000"
`), 0o644); err != nil {
		t.Fatal(err)
	}

	dscope.New(
		modes.ForTest(t),
		new(Module),
	).Fork(
		func() SearchDirs {
			return SearchDirs{high, low}
		},
	).Call(func(
		loader configs.Loader,
	) {
		if got := configs.First[int](loader, "max_steps"); got != 100 {
			t.Fatalf("got %d", got)
		}
		if got := configs.First[string](loader, "listen"); got != ":9000" {
			t.Fatalf("got %s", got)
		}
		if got := configs.First[string](loader, "general.type"); got != "openai" {
			t.Fatalf("got %s", got)
		}
	})
}

func TestSchemaRejectsUnknown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taitrace.cue")
	if err := os.WriteFile(path, []byte(`max_step: 1`), 0o644); err != nil {
		t.Fatal(err)
	}
	loader := configs.NewLoader([]string{path}, Schema)
	var v int
	if err := loader.AssignFirst("max_step", &v); err == nil {
		t.Fatal("should fail")
	}
}
