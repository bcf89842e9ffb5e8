package taivm

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestIntOverflow(t *testing.T) {
	cases := []struct {
		op   OpCode
		a, b any
	}{
		{OpAdd, int64(math.MaxInt64), int64(1)},
		{OpAdd, int64(math.MinInt64), int64(-1)},
		{OpSub, int64(math.MinInt64), int64(1)},
		{OpSub, int64(0), int64(math.MinInt64)},
		{OpMul, int64(math.MaxInt64), int64(2)},
		{OpMul, int64(math.MinInt64), int64(-1)},
		{OpMul, int64(-1), int64(math.MinInt64)},
		{OpFloorDiv, int64(math.MinInt64), int64(-1)},
		{OpBitLsh, int64(1), int64(63)},
		{OpBitLsh, int64(3), int64(62)},
	}
	for _, c := range cases {
		_, err := Binary(c.op, c.a, c.b)
		if !errors.Is(err, ErrOverflow) {
			t.Errorf("%v %s %v: got %v", c.a, c.op, c.b, err)
		}
	}
	if _, err := Unary(OpNeg, int64(math.MinInt64)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("got %v", err)
	}
}

func TestIntBoundary(t *testing.T) {
	cases := []struct {
		op   OpCode
		a, b any
		want int64
	}{
		{OpAdd, int64(math.MaxInt64 - 1), int64(1), math.MaxInt64},
		{OpSub, int64(math.MinInt64 + 1), int64(1), math.MinInt64},
		{OpMul, int64(math.MinInt64 / 2), int64(2), math.MinInt64},
		{OpMul, int64(-3), int64(-4), 12},
		{OpMod, int64(math.MinInt64), int64(-1), 0},
		{OpFloorDiv, int64(math.MinInt64), int64(1), math.MinInt64},
		{OpBitLsh, int64(-1), int64(63), math.MinInt64},
		{OpBitLsh, int64(0), int64(100), 0},
		{OpBitRsh, int64(-8), int64(100), -1},
	}
	for _, c := range cases {
		got, err := Binary(c.op, c.a, c.b)
		if err != nil {
			t.Fatalf("%v %s %v: %v", c.a, c.op, c.b, err)
		}
		if got != c.want {
			t.Errorf("%v %s %v = %v, want %v", c.a, c.op, c.b, got, c.want)
		}
	}
}

func TestFloatToInt(t *testing.T) {
	if n, err := FloatToInt(-2.7); err != nil || n != -2 {
		t.Fatalf("got %v %v", n, err)
	}
	for _, f := range []float64{math.Inf(1), math.NaN(), 1e19, -1e19, math.Exp2(63)} {
		if _, err := FloatToInt(f); err == nil {
			t.Fatalf("%v: should fail", f)
		}
	}
	if n, err := FloatToInt(-math.Exp2(63)); err != nil || n != math.MinInt64 {
		t.Fatalf("got %v %v", n, err)
	}
}

func TestAllocLimit(t *testing.T) {
	big := strings.Repeat("x", 1024)
	cases := []struct {
		name string
		fn   func() (any, error)
	}{
		{"str repeat", func() (any, error) {
			return Binary(OpMul, "ab", int64(1e11))
		}},
		{"repeat str", func() (any, error) {
			return Binary(OpMul, int64(1e11), "ab")
		}},
		{"repeat overflowing product", func() (any, error) {
			return Binary(OpMul, NewList(int64(1), int64(2)), int64(math.MaxInt64))
		}},
		{"tuple repeat", func() (any, error) {
			return Binary(OpMul, Tuple{nil}, int64(MaxAlloc+1))
		}},
		{"concat", func() (any, error) {
			s := strings.Repeat("x", MaxAlloc)
			return Binary(OpAdd, s, "y")
		}},
		{"format width", func() (any, error) {
			return Binary(OpMod, "%999999999999s", "a")
		}},
		{"format precision", func() (any, error) {
			return Binary(OpMod, "%.99999999f", 1.5)
		}},
		{"format output", func() (any, error) {
			args := make(Tuple, 20000)
			for i := range args {
				args[i] = big
			}
			return Binary(OpMod, strings.Repeat("%s", len(args)), args)
		}},
		{"materialize range", func() (any, error) {
			return Elements(&Range{Start: 0, Stop: math.MaxInt64, Step: 1})
		}},
	}
	for _, c := range cases {
		if _, err := c.fn(); !errors.Is(err, ErrAllocLimit) {
			t.Errorf("%s: got %v", c.name, err)
		}
	}

	// within the limit
	got, err := Binary(OpMul, "ab", int64(3))
	if err != nil || got != "ababab" {
		t.Fatalf("got %v %v", got, err)
	}
	got, err = Binary(OpMod, "%5s|%-3d|", Tuple{"a", int64(1)})
	if err != nil || got != "    a|1  |" {
		t.Fatalf("got %q %v", got, err)
	}
}

func TestRangeLenWide(t *testing.T) {
	cases := []struct {
		r    Range
		want int64
	}{
		{Range{Start: 0, Stop: 10, Step: 3}, 4},
		{Range{Start: 10, Stop: 0, Step: -3}, 4},
		{Range{Start: 0, Stop: 0, Step: 1}, 0},
		{Range{Start: math.MinInt64, Stop: math.MaxInt64, Step: 1}, math.MaxInt64},
		{Range{Start: math.MinInt64, Stop: math.MaxInt64, Step: math.MaxInt64}, 3},
		{Range{Start: math.MaxInt64, Stop: math.MinInt64, Step: math.MinInt64}, 2},
	}
	for _, c := range cases {
		if got := c.r.Len(); got != c.want {
			t.Errorf("%+v: got %d, want %d", c.r, got, c.want)
		}
	}
}

func spinForever() *Function {
	return &Function{
		Name:   "<module>",
		Source: "test",
		Line:   1,
		Code: []OpCode{
			OpLine.With(1),
			OpJump.With(-1),
		},
	}
}

func TestInstructionLimit(t *testing.T) {
	vm := NewVM(spinForever())
	vm.MaxInstructions = 5000
	var runErr error
	for err := range vm.Run {
		runErr = err
	}
	if !errors.Is(runErr, ErrInstructionLimit) {
		t.Fatalf("got %v", runErr)
	}
	var vmErr *Error
	if !errors.As(runErr, &vmErr) || vmErr.Line != 1 {
		t.Fatalf("got %v", runErr)
	}
	if vm.Executed() != 5001 {
		t.Fatalf("got %d", vm.Executed())
	}
}

func TestInterrupt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	vm := NewVM(spinForever())
	vm.Interrupt = func() error {
		if vm.Executed() >= 10*interruptInterval {
			cancel()
		}
		return ctx.Err()
	}
	var runErr error
	for err := range vm.Run {
		runErr = err
	}
	var interruptErr *InterruptError
	if !errors.As(runErr, &interruptErr) || !errors.Is(runErr, context.Canceled) {
		t.Fatalf("got %v", runErr)
	}
	if len(vm.CallStack) != 0 {
		t.Fatalf("stack not unwound: %d", len(vm.CallStack))
	}
}
