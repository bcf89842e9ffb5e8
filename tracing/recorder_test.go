package tracing

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/reusee/taitrace/taipy"
	"github.com/reusee/taitrace/taivm"
)

func record(t *testing.T, src string, maxSteps int) (Trace, error) {
	t.Helper()
	vm, err := taipy.NewVM("main.py", src)
	if err != nil {
		t.Fatal(err)
	}
	recorder := NewRecorder(context.Background(), src, maxSteps)
	vm.SetHook(recorder)
	var runErr error
	for err := range vm.Run {
		runErr = err
	}
	return recorder.Trace(), runErr
}

func TestRecordSimple(t *testing.T) {
	trace, err := record(t, "x = 1\ny = x + 2\nprint(y)\n", 0)
	if err != nil {
		t.Fatal(err)
	}

	var lines []int
	for _, step := range trace {
		if step.Event == EventLine {
			lines = append(lines, step.Line)
		}
	}
	if !slices.Equal(lines, []int{1, 2, 3}) {
		t.Fatalf("got %v", lines)
	}

	var found bool
	for i, step := range trace {
		if step.Event != EventLine || step.Line != 3 {
			continue
		}
		found = true
		y, ok := step.Bindings["y"]
		if !ok {
			t.Fatalf("y not bound at step %d", i)
		}
		if !y.Changed || y.Value != "3" || y.Type != "int" {
			t.Fatalf("got %+v", y)
		}
		if x := step.Bindings["x"]; x.Changed {
			t.Fatalf("x should not change: %+v", x)
		}
		if step.Code != "print(y)" {
			t.Fatalf("got %q", step.Code)
		}
	}
	if !found {
		t.Fatal("line 3 not recorded")
	}
}

func TestRecordStack(t *testing.T) {
	src := `def add(a, b):
    s = a + b
    return s
total = add(1, 2)
nums = sorted([3, 1])
flags = [n > 1 for n in nums]
n = sum(nums)
`
	trace, err := record(t, src, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, step := range trace {
		if len(step.Stack) > 0 && step.Stack[0] != "<module>" && step.Event != EventCall {
			t.Fatalf("got stack %v", step.Stack)
		}
		for _, name := range step.Stack {
			if name == "sum" {
				t.Fatal("synthetic frame recorded")
			}
		}
	}

	var inAdd []Step
	for _, step := range trace {
		if len(step.Stack) == 2 {
			inAdd = append(inAdd, step)
		}
	}
	if len(inAdd) == 0 {
		t.Fatal("no steps inside add")
	}
	for _, step := range inAdd {
		if step.Stack[1] != "add" {
			t.Fatalf("got %v", step.Stack)
		}
		if _, ok := step.Bindings["total"]; ok {
			t.Fatal("module binding visible inside function")
		}
	}

	last := trace[len(trace)-1]
	if last.Event != EventReturn || !slices.Equal(last.Stack, []string{"<module>"}) {
		t.Fatalf("got %+v", last)
	}
	if v := last.Bindings["n"].Value; v != "4" {
		t.Fatalf("got %v", v)
	}
	if _, ok := last.Bindings["add"]; !ok {
		t.Fatal("function binding missing")
	}
	if _, ok := last.Bindings["print"]; ok {
		t.Fatal("builtin recorded")
	}
}

func TestRecordChanged(t *testing.T) {
	trace, err := record(t, "a = [1]\nb = 2\na.append(3)\nc = 0\n", 0)
	if err != nil {
		t.Fatal(err)
	}
	for i, step := range trace {
		for name, binding := range step.Bindings {
			if i == 0 {
				if !binding.Changed {
					t.Fatalf("%s should be new", name)
				}
				continue
			}
			prev, ok := trace[i-1].Bindings[name]
			want := !ok || prev.Value != binding.Value || prev.Type != binding.Type
			if binding.Changed != want {
				t.Fatalf("step %d %s: got changed=%v", i, name, binding.Changed)
			}
		}
	}
}

func TestRecordHidesInternalNames(t *testing.T) {
	trace, err := record(t, "_hidden = 1\nshown = b'abc'\n", 0)
	if err != nil {
		t.Fatal(err)
	}
	last := trace[len(trace)-1]
	if _, ok := last.Bindings["_hidden"]; ok {
		t.Fatal("internal name recorded")
	}
	if v := last.Bindings["shown"].Value; v != "<bytes: 3 bytes>" {
		t.Fatalf("got %v", v)
	}
}

func TestRecordDeterministic(t *testing.T) {
	src := "def f(n):\n    return n * 2\nfor i in range(3):\n    x = f(i)\n"
	a, err := record(t, src, 0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := record(t, src, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != len(b) {
		t.Fatalf("%d != %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Line != b[i].Line || a[i].Event != b[i].Event || !slices.Equal(a[i].Stack, b[i].Stack) {
			t.Fatalf("step %d differs", i)
		}
	}
}

func TestRecordStepLimit(t *testing.T) {
	_, err := record(t, "while True:\n    pass\n", 50)
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("got %v", err)
	}
}

func TestRecordCanceledInSyntheticFrame(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	vm := taivm.NewVM(&taivm.Function{
		Name:   "sum",
		Source: "<prelude>",
		Line:   1,
		Code: []taivm.OpCode{
			taivm.OpLine.With(1),
		},
	})
	recorder := NewRecorder(ctx, "", 0)
	vm.SetHook(recorder)
	var runErr error
	for err := range vm.Run {
		runErr = err
	}
	if !errors.Is(runErr, context.Canceled) {
		t.Fatalf("got %v", runErr)
	}
	if len(recorder.Trace()) != 0 {
		t.Fatalf("got %v", recorder.Trace())
	}
}

func TestRecordException(t *testing.T) {
	trace, err := record(t, "x = 1\ny = x / 0\n", 0)
	var vmErr *taivm.Error
	if !errors.As(err, &vmErr) {
		t.Fatalf("got %v", err)
	}
	last := trace[len(trace)-1]
	if last.Event != EventException || last.Line != 2 {
		t.Fatalf("got %+v", last)
	}
}

func TestStackUnderflow(t *testing.T) {
	vm, err := taipy.NewVM("main.py", "x = 1\n")
	if err != nil {
		t.Fatal(err)
	}
	recorder := NewRecorder(context.Background(), "x = 1\n", 0)
	vm.SetHook(taivm.HookFunc(func(vm *taivm.VM, event taivm.Event, arg any) error {
		if event == taivm.EventCall {
			return nil
		}
		return recorder.OnEvent(vm, event, arg)
	}))
	for err := range vm.Run {
		t.Fatal(err)
	}
	for _, step := range recorder.Trace() {
		if len(step.Stack) != 0 {
			t.Fatalf("got %v", step.Stack)
		}
	}
}
