package sandboxes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/reusee/taitrace/logs"
	"github.com/reusee/taitrace/metrics"
	"github.com/reusee/taitrace/syncs"
	"github.com/reusee/taitrace/taipy"
	"github.com/reusee/taitrace/taivm"
	"github.com/reusee/taitrace/telemetry"
	"github.com/reusee/taitrace/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// UserCodeFault is a fault caused by the submitted code or its inputs.
type UserCodeFault struct {
	Message string
	// zero when unknown
	Line int
	Err  error
}

func (u *UserCodeFault) Error() string {
	return u.Message
}

func (u *UserCodeFault) Unwrap() error {
	return u.Err
}

// MainName is the file name reported for submitted code.
const MainName = "main.py"

type Sandbox struct {
	logger          logs.Logger
	sem             syncs.Semaphore
	maxSteps        int
	maxInstructions int64
}

func (Module) Sandbox(
	logger logs.Logger,
	maxSteps MaxSteps,
	maxInstructions MaxInstructions,
	maxRuns MaxConcurrentRuns,
) *Sandbox {
	return &Sandbox{
		logger:          logger,
		sem:             syncs.NewSemaphore(int(maxRuns)),
		maxSteps:        int(maxSteps),
		maxInstructions: int64(maxInstructions),
	}
}

// Run executes source with inputs bound as globals, recording every step.
// On any fault the partial trace and output are dropped and a *UserCodeFault is returned.
func (s *Sandbox) Run(ctx context.Context, source string, inputs map[string]any) (output string, trace tracing.Trace, err error) {
	if err := s.sem.AcquireContext(ctx); err != nil {
		return "", nil, err
	}
	defer s.sem.Release()

	ctx, span := telemetry.Tracer().Start(ctx, "sandboxes.run")
	span.SetAttributes(attribute.Int("source.bytes", len(source)))
	defer span.End()

	metrics.RunsActive.Inc()
	defer metrics.RunsActive.Dec()

	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "fault"
			output = ""
			trace = nil
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			metrics.TraceSteps.Observe(float64(len(trace)))
			span.SetAttributes(attribute.Int("trace.steps", len(trace)))
		}
		metrics.RunsTotal.WithLabelValues(outcome).Inc()
	}()

	vm, err := taipy.NewVM(MainName, source)
	if err != nil {
		var syntaxErr *taipy.SyntaxError
		if errors.As(err, &syntaxErr) {
			return "", nil, &UserCodeFault{
				Message: syntaxErr.Error(),
				Line:    syntaxErr.Line,
				Err:     err,
			}
		}
		return "", nil, &UserCodeFault{
			Message: err.Error(),
			Err:     err,
		}
	}

	for _, name := range slices.Sorted(maps.Keys(inputs)) {
		value, err := taivm.FromGo(inputs[name])
		if err != nil {
			return "", nil, &UserCodeFault{
				Message: fmt.Sprintf("invalid input %q: %v", name, err),
				Err:     err,
			}
		}
		vm.Def(name, value)
	}

	return s.trace(ctx, vm, source)
}

// trace runs vm under a fresh recorder. The hook is removed on every exit path.
func (s *Sandbox) trace(ctx context.Context, vm *taivm.VM, source string) (string, tracing.Trace, error) {
	buf := new(bytes.Buffer)
	vm.Stdout = buf
	vm.MaxInstructions = s.maxInstructions
	vm.Interrupt = ctx.Err
	recorder := tracing.NewRecorder(ctx, source, s.maxSteps)
	vm.SetHook(recorder)
	defer vm.SetHook(nil)

	if err := s.exec(vm); err != nil {
		fault := &UserCodeFault{
			Message: err.Error(),
			Err:     err,
		}
		var vmErr *taivm.Error
		if errors.As(err, &vmErr) {
			fault.Line = vmErr.Line
		}
		s.logger.InfoContext(ctx, "user code fault",
			"error", err,
			"line", fault.Line,
		)
		return "", nil, fault
	}

	return buf.String(), recorder.Trace(), nil
}

func (s *Sandbox) exec(vm *taivm.VM) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("internal error: %v", p)
		}
	}()
	for err := range vm.Run {
		return err
	}
	return nil
}
