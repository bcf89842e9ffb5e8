package taivm

import (
	"io"
)

const DefaultMaxDepth = 1000

type VM struct {
	Main         *Function
	Builtins     *Env
	Globals      *Env
	CallStack    []*Frame
	OperandStack []any
	SP           int
	Stdout       io.Writer
	MaxDepth     int

	// MaxInstructions bounds executed instructions, including those of synthetic frames. Zero means unlimited.
	MaxInstructions int64
	// Interrupt is polled periodically. A non-nil error aborts the run.
	Interrupt       func() error

	hook     Hook
	started  bool
	executed int64
}

const interruptInterval = 1024

// Executed returns the number of instructions run so far.
func (v *VM) Executed() int64 {
	return v.executed
}

// tick accounts one instruction.
func (v *VM) tick() error {
	v.executed++
	if v.MaxInstructions > 0 && v.executed > v.MaxInstructions {
		return v.fault(ErrInstructionLimit)
	}
	if v.Interrupt != nil && v.executed%interruptInterval == 0 {
		if err := v.Interrupt(); err != nil {
			return &InterruptError{
				Err: err,
			}
		}
	}
	return nil
}

func NewVM(main *Function) *VM {
	builtins := &Env{}
	return &VM{
		Main:         main,
		Builtins:     builtins,
		Globals:      builtins.NewChild(),
		OperandStack: make([]any, 1024),
		CallStack:    make([]*Frame, 0, 64),
		Stdout:       io.Discard,
		MaxDepth:     DefaultMaxDepth,
	}
}

func (v *VM) Get(name string) (any, bool) {
	return v.Globals.Get(name)
}

func (v *VM) Def(name string, val any) {
	v.Globals.Def(name, val)
}

func (v *VM) DefBuiltin(name string, val any) {
	v.Builtins.Def(name, val)
}

// Frame returns the executing frame, nil when idle.
func (v *VM) Frame() *Frame {
	if len(v.CallStack) == 0 {
		return nil
	}
	return v.CallStack[len(v.CallStack)-1]
}

// Locals returns the function-level bindings of the executing frame.
// The map is owned by the VM and must not be retained.
func (v *VM) Locals() map[string]any {
	frame := v.Frame()
	if frame == nil {
		return nil
	}
	return frame.Env.Vars
}

func (v *VM) push(val any) {
	if v.SP >= len(v.OperandStack) {
		v.growOperandStack()
	}
	v.OperandStack[v.SP] = val
	v.SP++
}

func (v *VM) growOperandStack() {
	newCap := len(v.OperandStack) * 2
	if newCap == 0 {
		newCap = 8
	}
	newStack := make([]any, newCap)
	copy(newStack, v.OperandStack)
	v.OperandStack = newStack
}

func (v *VM) pop() any {
	if v.SP <= 0 {
		return nil
	}
	v.SP--
	val := v.OperandStack[v.SP]
	v.OperandStack[v.SP] = nil
	return val
}

func (v *VM) peek(n int) any {
	return v.OperandStack[v.SP-1-n]
}

func (v *VM) dropTo(sp int) {
	for i := sp; i < v.SP; i++ {
		v.OperandStack[i] = nil
	}
	if sp < v.SP {
		v.SP = sp
	}
}
