package taivm

import (
	"errors"
	"fmt"
)

var ErrAlreadyRun = errors.New("vm already ran")

// Run executes the main function. At most one error is yielded; faults abort the run.
func (v *VM) Run(yield func(error) bool) {
	if v.started {
		yield(ErrAlreadyRun)
		return
	}
	v.started = true

	v.CallStack = append(v.CallStack, &Frame{
		Fun:    v.Main,
		Env:    v.Globals,
		Scope:  v.Globals,
		BaseSP: v.SP,
		Line:   v.Main.Line,
	})
	if err := v.emit(EventCall, nil); err != nil {
		v.CallStack = v.CallStack[:0]
		yield(err)
		return
	}

	if _, err := v.exec(0); err != nil {
		yield(err)
	}
}

// exec runs until the frame at depth base returns.
func (v *VM) exec(base int) (_ any, err error) {
	defer func() {
		if err != nil && len(v.CallStack) > base {
			v.dropTo(v.CallStack[base].BaseSP)
			v.CallStack = v.CallStack[:base]
		}
	}()

	for {
		frame := v.CallStack[len(v.CallStack)-1]

		if frame.IP >= len(frame.Fun.Code) {
			ret, done, err := v.leave(nil, base)
			if err != nil {
				return nil, err
			}
			if done {
				return ret, nil
			}
			continue
		}

		if err := v.tick(); err != nil {
			return nil, err
		}
		inst := frame.Fun.Code[frame.IP]
		frame.IP++
		op := inst & 0xff
		arg := int(int32(inst) >> 8)

		switch op {

		case OpLoadConst:
			v.push(frame.Fun.Constants[arg])

		case OpLoadVar:
			name := frame.Fun.Constants[arg].(string)
			val, ok := frame.Scope.Get(name)
			if !ok {
				return nil, v.fault(fmt.Errorf("name '%s' is not defined", name))
			}
			v.push(val)

		case OpStoreVar:
			name := frame.Fun.Constants[arg].(string)
			frame.Scope.Def(name, v.pop())

		case OpPop:
			v.pop()

		case OpDup:
			v.push(v.peek(0))

		case OpDup2:
			a, b := v.peek(1), v.peek(0)
			v.push(a)
			v.push(b)

		case OpRot3:
			// a b c -> c a b
			c := v.pop()
			b := v.pop()
			a := v.pop()
			v.push(c)
			v.push(a)
			v.push(b)

		case OpJump:
			frame.IP += arg

		case OpJumpFalse:
			if !Truthy(v.pop()) {
				frame.IP += arg
			}

		case OpJumpTrue:
			if Truthy(v.pop()) {
				frame.IP += arg
			}

		case OpLine:
			frame.Line = arg
			if err := v.emit(EventLine, nil); err != nil {
				return nil, err
			}

		case OpCall:
			if err := v.callOp(arg); err != nil {
				return nil, v.fault(err)
			}

		case OpReturn:
			ret, done, err := v.leave(v.pop(), base)
			if err != nil {
				return nil, err
			}
			if done {
				return ret, nil
			}

		case OpMakeClosure:
			fn := frame.Fun.Constants[arg].(*Function)
			defaults := make([]any, fn.NumDefaults)
			copy(defaults, v.OperandStack[v.SP-fn.NumDefaults:v.SP])
			v.dropTo(v.SP - fn.NumDefaults)
			v.push(&Closure{
				Fun:      fn,
				Env:      frame.Scope,
				Defaults: defaults,
			})

		case OpMakeList:
			elems := make([]any, arg)
			copy(elems, v.OperandStack[v.SP-arg:v.SP])
			v.dropTo(v.SP - arg)
			v.push(NewList(elems...))

		case OpMakeTuple:
			elems := make(Tuple, arg)
			copy(elems, v.OperandStack[v.SP-arg:v.SP])
			v.dropTo(v.SP - arg)
			v.push(elems)

		case OpMakeDict:
			d := NewDict()
			start := v.SP - 2*arg
			for i := start; i < v.SP; i += 2 {
				if err := d.Set(v.OperandStack[i], v.OperandStack[i+1]); err != nil {
					return nil, v.fault(err)
				}
			}
			v.dropTo(start)
			v.push(d)

		case OpGetIndex:
			key := v.pop()
			container := v.pop()
			val, err := GetIndex(container, key)
			if err != nil {
				return nil, v.fault(err)
			}
			v.push(val)

		case OpSetIndex:
			key := v.pop()
			container := v.pop()
			val := v.pop()
			if err := SetIndex(container, key, val); err != nil {
				return nil, v.fault(err)
			}

		case OpGetSlice:
			step := v.pop()
			hi := v.pop()
			lo := v.pop()
			container := v.pop()
			val, err := Slice(container, lo, hi, step)
			if err != nil {
				return nil, v.fault(err)
			}
			v.push(val)

		case OpGetAttr:
			name := frame.Fun.Constants[arg].(string)
			val, err := GetAttr(v.pop(), name)
			if err != nil {
				return nil, v.fault(err)
			}
			v.push(val)

		case OpGetIter:
			it, err := Iterate(v.pop())
			if err != nil {
				return nil, v.fault(err)
			}
			v.push(it)

		case OpNextIter:
			it := v.peek(0).(*Iterator)
			if val, ok := it.Next(); ok {
				v.push(val)
			} else {
				v.pop()
				frame.IP += arg
			}

		case OpUnpack:
			val := v.pop()
			elems, err := Elements(val)
			if err != nil {
				return nil, v.fault(fmt.Errorf("cannot unpack non-iterable %s object", TypeName(val)))
			}
			if len(elems) < arg {
				return nil, v.fault(fmt.Errorf("not enough values to unpack (expected %d, got %d)", arg, len(elems)))
			}
			if len(elems) > arg {
				return nil, v.fault(fmt.Errorf("too many values to unpack (expected %d)", arg))
			}
			for i := len(elems) - 1; i >= 0; i-- {
				v.push(elems[i])
			}

		case OpListAppend:
			val := v.pop()
			l := v.peek(arg).(*List)
			l.Elements = append(l.Elements, val)

		case OpDictSet:
			val := v.pop()
			key := v.pop()
			d := v.peek(arg).(*Dict)
			if err := d.Set(key, val); err != nil {
				return nil, v.fault(err)
			}

		case OpEnterScope:
			frame.Scope = frame.Scope.NewChild()

		case OpLeaveScope:
			frame.Scope = frame.Scope.Parent

		case OpNeg, OpPos, OpNot, OpBitNot:
			val, err := Unary(op, v.pop())
			if err != nil {
				return nil, v.fault(err)
			}
			v.push(val)

		case OpAdd, OpSub, OpMul, OpDiv, OpFloorDiv, OpMod,
			OpBitAnd, OpBitOr, OpBitXor, OpBitLsh, OpBitRsh:
			b := v.pop()
			a := v.pop()
			var val any
			var err error
			if op == OpAdd && arg == 1 {
				val, err = InplaceAdd(a, b)
			} else {
				val, err = Binary(op, a, b)
			}
			if err != nil {
				return nil, v.fault(err)
			}
			v.push(val)

		case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
			b := v.pop()
			a := v.pop()
			ok, err := Compare(op, a, b)
			if err != nil {
				return nil, v.fault(err)
			}
			v.push(ok)

		case OpContains, OpNotContains:
			container := v.pop()
			item := v.pop()
			ok, err := Contains(container, item)
			if err != nil {
				return nil, v.fault(err)
			}
			v.push(ok == (op == OpContains))

		default:
			return nil, v.fault(fmt.Errorf("unknown opcode %d", op))

		}
	}
}

// leave pops the executing frame and reports whether it was the frame exec was started for.
func (v *VM) leave(ret any, base int) (any, bool, error) {
	if err := v.emit(EventReturn, ret); err != nil {
		return nil, false, err
	}
	frame := v.CallStack[len(v.CallStack)-1]
	v.CallStack = v.CallStack[:len(v.CallStack)-1]
	v.dropTo(frame.BaseSP)
	if len(v.CallStack) == base {
		return ret, true, nil
	}
	v.push(ret)
	return nil, false, nil
}
