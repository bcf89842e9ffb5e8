package tracing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/reusee/taitrace/taivm"
)

var ErrStepLimit = errors.New("step limit exceeded")

// Recorder is a taivm.Hook that records one Step per event of non-synthetic frames.
// Cancellation and the step limit are checked on every event, synthetic or not.
// A Recorder serves a single run.
type Recorder struct {
	ctx      context.Context
	lines    []string
	maxSteps int
	now      func() time.Time

	trace Trace
	stack []string
	prev  map[string]Binding
}

var _ taivm.Hook = new(Recorder)

// NewRecorder creates a recorder for source. maxSteps <= 0 means unlimited.
func NewRecorder(ctx context.Context, source string, maxSteps int) *Recorder {
	return &Recorder{
		ctx:      ctx,
		lines:    strings.Split(source, "\n"),
		maxSteps: maxSteps,
		now:      time.Now,
	}
}

func (r *Recorder) OnEvent(vm *taivm.VM, event taivm.Event, arg any) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	if r.maxSteps > 0 && len(r.trace) >= r.maxSteps {
		return ErrStepLimit
	}
	frame := vm.Frame()
	if frame == nil || frame.Fun.IsSynthetic() {
		return nil
	}

	bindings := r.snapshot(vm.Locals())
	stack := make([]string, len(r.stack))
	copy(stack, r.stack)

	now := r.now()
	r.trace = append(r.trace, Step{
		Line:      frame.Line,
		Event:     eventOf(event),
		Code:      r.lineText(frame.Line),
		Bindings:  bindings,
		Stack:     stack,
		Timestamp: float64(now.UnixNano()) / 1e9,
	})

	switch event {
	case taivm.EventCall:
		r.stack = append(r.stack, frame.Fun.Name)
	case taivm.EventReturn:
		if len(r.stack) > 0 {
			r.stack = r.stack[:len(r.stack)-1]
		}
	}

	return nil
}

func (r *Recorder) snapshot(locals map[string]any) map[string]Binding {
	bindings := make(map[string]Binding, len(locals))
	for name, value := range locals {
		if strings.HasPrefix(name, "_") {
			continue
		}
		typeName := taivm.TypeName(value)
		display := Display(value)
		binding := Binding{
			Name:      name,
			Type:      typeName,
			Value:     display,
			canonical: canonical(typeName, display),
		}
		prev, ok := r.prev[name]
		binding.Changed = !ok || prev.canonical != binding.canonical
		bindings[name] = binding
	}
	r.prev = bindings
	return bindings
}

func (r *Recorder) lineText(line int) string {
	if line < 1 || line > len(r.lines) {
		return ""
	}
	return strings.TrimRight(r.lines[line-1], " \t\r")
}

// Trace returns the recorded steps.
func (r *Recorder) Trace() Trace {
	return r.trace
}

func eventOf(event taivm.Event) Event {
	switch event {
	case taivm.EventCall:
		return EventCall
	case taivm.EventLine:
		return EventLine
	case taivm.EventReturn:
		return EventReturn
	case taivm.EventException:
		return EventException
	}
	return EventOther
}
