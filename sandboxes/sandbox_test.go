package sandboxes

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/reusee/dscope"
	"github.com/reusee/taitrace/configs"
	"github.com/reusee/taitrace/modes"
	"github.com/reusee/taitrace/taipy"
	"github.com/reusee/taitrace/taivm"
	"github.com/reusee/taitrace/tracing"
)

func testScope(t *testing.T) dscope.Scope {
	return dscope.New(
		modes.ForTest(t),
		new(Module),
		dscope.Provide(configs.NewLoader(nil, "")),
	)
}

func TestRun(t *testing.T) {
	testScope(t).Call(func(
		sandbox *Sandbox,
	) {
		output, trace, err := sandbox.Run(t.Context(), "x = 1\ny = x + 2\nprint(y)", nil)
		if err != nil {
			t.Fatal(err)
		}
		if output != "3\n" {
			t.Fatalf("got %q", output)
		}

		lines := map[int]bool{}
		for _, step := range trace {
			if step.Event == tracing.EventLine {
				lines[step.Line] = true
			}
		}
		for _, line := range []int{1, 2, 3} {
			if !lines[line] {
				t.Fatalf("no line event for %d", line)
			}
		}

		// the step after line 2 ran
		var found bool
		for _, step := range trace {
			if step.Event == tracing.EventLine && step.Line == 3 {
				y, ok := step.Bindings["y"]
				if !ok || !y.Changed || y.Value != "3" || y.Type != "int" {
					t.Fatalf("got %+v", y)
				}
				if x := step.Bindings["x"]; x.Changed {
					t.Fatalf("got %+v", x)
				}
				found = true
			}
		}
		if !found {
			t.Fatal("no step for line 3")
		}
	})
}

func TestRunInputs(t *testing.T) {
	testScope(t).Call(func(
		sandbox *Sandbox,
	) {
		var inputs map[string]any
		decoder := json.NewDecoder(strings.NewReader(`{"n": 3, "ratio": 0.5, "names": ["a", "b"], "opts": {"k": true}}`))
		decoder.UseNumber()
		if err := decoder.Decode(&inputs); err != nil {
			t.Fatal(err)
		}
		output, _, err := sandbox.Run(t.Context(), `print(type(n), type(ratio), names[n - 2], opts["k"])`, inputs)
		if err != nil {
			t.Fatal(err)
		}
		if output != "<class 'int'> <class 'float'> b True\n" {
			t.Fatalf("got %q", output)
		}
	})
}

func TestRunFault(t *testing.T) {
	testScope(t).Call(func(
		sandbox *Sandbox,
	) {
		for _, c := range []struct {
			source string
			msg    string
			line   int
		}{
			{"print(1)\nx = 1 / 0\n", "division by zero", 2},
			{"x = (\n", "main.py", 0},
			{"x = undefined_name\n", "undefined_name", 1},
		} {
			output, trace, err := sandbox.Run(t.Context(), c.source, nil)
			var fault *UserCodeFault
			if !errors.As(err, &fault) {
				t.Fatalf("%q: got %v", c.source, err)
			}
			if !strings.Contains(fault.Message, c.msg) || c.line != 0 && fault.Line != c.line {
				t.Fatalf("%q: got %+v", c.source, fault)
			}
			if output != "" || trace != nil {
				t.Fatalf("%q: partial result returned", c.source)
			}
		}
	})
}

func TestRunStepLimit(t *testing.T) {
	testScope(t).Fork(
		func() MaxSteps {
			return 50
		},
	).Call(func(
		sandbox *Sandbox,
	) {
		_, _, err := sandbox.Run(t.Context(), "while True:\n    pass\n", nil)
		var fault *UserCodeFault
		if !errors.As(err, &fault) || fault.Message != tracing.ErrStepLimit.Error() {
			t.Fatalf("got %v", err)
		}
	})
}

func TestRunCanceled(t *testing.T) {
	testScope(t).Call(func(
		sandbox *Sandbox,
	) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		_, _, err := sandbox.Run(ctx, "x = 1\n", nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("got %v", err)
		}
	})
}

func TestHookDetached(t *testing.T) {
	testScope(t).Call(func(
		sandbox *Sandbox,
	) {
		for _, source := range []string{
			"x = 1\n",
			"x = 1 / 0\n",
			"explode()\n",
		} {
			vm, err := taipy.NewVM(MainName, source)
			if err != nil {
				t.Fatal(err)
			}
			vm.DefBuiltin("explode", taivm.NativeFunc{
				Name: "explode",
				Func: func(vm *taivm.VM, args []any, kwargs taivm.KwArgs) (any, error) {
					panic("explode")
				},
			})
			_, _, err = sandbox.trace(t.Context(), vm, source)
			if vm.Hook() != nil {
				t.Fatalf("%q: hook not removed", source)
			}
			if source == "explode()\n" && (err == nil || !strings.Contains(err.Error(), "internal error")) {
				t.Fatalf("got %v", err)
			}
		}
	})
}

func TestRunConcurrent(t *testing.T) {
	testScope(t).Call(func(
		sandbox *Sandbox,
	) {
		var wg sync.WaitGroup
		for i := range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				output, trace, err := sandbox.Run(context.Background(), "def f(a):\n    return a * 2\nprint(f(n))\n", map[string]any{
					"n": i,
				})
				if err != nil {
					t.Error(err)
					return
				}
				if want := taivm.Str(int64(i*2)) + "\n"; output != want {
					t.Errorf("got %q, want %q", output, want)
				}
				for _, step := range trace {
					if n, ok := step.Bindings["n"]; ok && n.Value != taivm.Str(int64(i)) {
						t.Errorf("got %+v", n)
					}
				}
			}()
		}
		wg.Wait()
	})
}

func TestRunAllocLimit(t *testing.T) {
	testScope(t).Call(func(
		sandbox *Sandbox,
	) {
		for _, source := range []string{
			"s = 'ab' * pow(10, 11)\nprint(len(s))\n",
			"s = '%999999999999s' % 'x'\n",
			"s = list(range(1, 9223372036854775807))\n",
		} {
			_, _, err := sandbox.Run(t.Context(), source, nil)
			var fault *UserCodeFault
			if !errors.As(err, &fault) {
				t.Fatalf("%q: got %v", source, err)
			}
			if !errors.Is(err, taivm.ErrAllocLimit) || !strings.Contains(fault.Message, "result too large") {
				t.Fatalf("%q: got %+v", source, fault)
			}
			if fault.Line != 1 {
				t.Fatalf("%q: got line %d", source, fault.Line)
			}
		}
	})
}

func TestRunOverflow(t *testing.T) {
	testScope(t).Call(func(
		sandbox *Sandbox,
	) {
		_, _, err := sandbox.Run(t.Context(), "x = 1\nfor i in range(70):\n    x = x * 2\n", nil)
		var fault *UserCodeFault
		if !errors.As(err, &fault) || !errors.Is(err, taivm.ErrOverflow) {
			t.Fatalf("got %v", err)
		}
		if fault.Line != 3 {
			t.Fatalf("got line %d", fault.Line)
		}
	})
}

func TestRunDeadline(t *testing.T) {
	testScope(t).Fork(
		func() MaxInstructions {
			return 1 << 62
		},
		func() MaxSteps {
			return 1 << 30
		},
	).Call(func(
		sandbox *Sandbox,
	) {
		for _, source := range []string{
			// sum runs in a prelude frame that records no steps
			"n = sum(range(20000000))\n",
			"x = len([i for i in range(20000000)])\n",
		} {
			ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
			start := time.Now()
			_, _, err := sandbox.Run(ctx, source, nil)
			cancel()
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("%q: got %v", source, err)
			}
			if elapsed := time.Since(start); elapsed > 2*time.Second {
				t.Fatalf("%q: took %v", source, elapsed)
			}
		}
	})
}

func TestRunInstructionLimit(t *testing.T) {
	testScope(t).Fork(
		func() MaxInstructions {
			return 100_000
		},
	).Call(func(
		sandbox *Sandbox,
	) {
		_, _, err := sandbox.Run(t.Context(), "n = sum(range(1000000))\n", nil)
		var fault *UserCodeFault
		if !errors.As(err, &fault) || !errors.Is(err, taivm.ErrInstructionLimit) {
			t.Fatalf("got %v", err)
		}

		output, _, err := sandbox.Run(t.Context(), "print(sum(range(100)))\n", nil)
		if err != nil {
			t.Fatal(err)
		}
		if output != "4950\n" {
			t.Fatalf("got %q", output)
		}
	})
}
