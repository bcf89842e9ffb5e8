package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/reusee/dscope"
	"github.com/reusee/taitrace/modes"
	"github.com/reusee/taitrace/responses"
	"github.com/reusee/taitrace/sandboxes"
	"github.com/reusee/taitrace/traceconfigs"
)

func testScope(t *testing.T) dscope.Scope {
	return dscope.New(
		new(Module),
		modes.ForTest(t),
	).Fork(
		func() traceconfigs.SearchDirs {
			return nil
		},
	)
}

func TestTraceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.py")
	if err := os.WriteFile(path, []byte("total = 0\nfor i in range(3):\n    total += i\nprint(total)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	testScope(t).Call(func(
		traceFile TraceFile,
	) {
		buf := new(bytes.Buffer)
		if err := traceFile(t.Context(), path, false, buf); err != nil {
			t.Fatal(err)
		}
		var resp responses.Response
		if err := json.Unmarshal(buf.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Output != "3\n" || len(resp.Trace) == 0 {
			t.Fatalf("got %s", buf.Bytes())
		}
		for _, step := range resp.Trace {
			if step.Explanation != responses.Unavailable {
				t.Fatalf("got %q", step.Explanation)
			}
		}
	})
}

func TestTraceFileFault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.py")
	if err := os.WriteFile(path, []byte("x = [][1]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	testScope(t).Call(func(
		traceFile TraceFile,
	) {
		err := traceFile(t.Context(), path, false, new(bytes.Buffer))
		var fault *sandboxes.UserCodeFault
		if !errors.As(err, &fault) {
			t.Fatalf("got %v", err)
		}
	})
}
