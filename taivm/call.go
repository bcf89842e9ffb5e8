package taivm

import (
	"fmt"
	"slices"
)

// enter pushes a frame for c bound to args and reports the call event.
func (v *VM) enter(c *Closure, args []any, kwargs KwArgs) error {
	if len(v.CallStack) >= v.MaxDepth {
		return ErrRecursionLimit
	}
	env, err := bind(c, args, kwargs)
	if err != nil {
		return err
	}
	v.CallStack = append(v.CallStack, &Frame{
		Fun:    c.Fun,
		Env:    env,
		Scope:  env,
		BaseSP: v.SP,
		Line:   c.Fun.Line,
	})
	return v.emit(EventCall, nil)
}

func bind(c *Closure, args []any, kwargs KwArgs) (*Env, error) {
	fn := c.Fun
	env := c.Env.NewChild()
	numParams := len(fn.ParamNames)
	required := numParams - fn.NumDefaults

	if len(args) > numParams && fn.VarArgs == "" {
		return nil, fmt.Errorf("%s() takes %d positional arguments but %d were given", fn.Name, numParams, len(args))
	}

	bound := make([]bool, numParams)
	for i := 0; i < len(args) && i < numParams; i++ {
		env.Def(fn.ParamNames[i], args[i])
		bound[i] = true
	}
	if fn.VarArgs != "" {
		var rest Tuple
		if len(args) > numParams {
			rest = append(rest, args[numParams:]...)
		}
		env.Def(fn.VarArgs, rest)
	}

	var extra *Dict
	if fn.VarKwargs != "" {
		extra = NewDict()
	}
	for _, kw := range kwargs {
		idx := slices.Index(fn.ParamNames, kw.Name)
		if idx < 0 {
			if extra == nil {
				return nil, fmt.Errorf("%s() got an unexpected keyword argument '%s'", fn.Name, kw.Name)
			}
			if err := extra.Set(kw.Name, kw.Value); err != nil {
				return nil, err
			}
			continue
		}
		if bound[idx] {
			return nil, fmt.Errorf("%s() got multiple values for argument '%s'", fn.Name, kw.Name)
		}
		env.Def(kw.Name, kw.Value)
		bound[idx] = true
	}
	if extra != nil {
		env.Def(fn.VarKwargs, extra)
	}

	for i, ok := range bound {
		if ok {
			continue
		}
		if i >= required {
			env.Def(fn.ParamNames[i], c.Defaults[i-required])
			continue
		}
		return nil, fmt.Errorf("%s() missing required positional argument: '%s'", fn.Name, fn.ParamNames[i])
	}

	return env, nil
}

// Call invokes fn and runs it to completion. Natives use it to call back into code.
func (v *VM) Call(fn any, args []any, kwargs KwArgs) (any, error) {
	switch fn := fn.(type) {
	case *Closure:
		base := len(v.CallStack)
		if err := v.enter(fn, args, kwargs); err != nil {
			return nil, err
		}
		return v.exec(base)
	case NativeFunc:
		return fn.Call(v, args, kwargs)
	case *BoundMethod:
		return fn.Method.Call(v, append([]any{fn.Self}, args...), kwargs)
	}
	return nil, fmt.Errorf("'%s' object is not callable", TypeName(fn))
}

// callOp handles OpCall. It either pushes a new frame or the native result.
func (v *VM) callOp(arg int) error {
	argc, kwc, star, dstar := decodeCall(arg)

	var kwargs KwArgs
	var dstarKwargs KwArgs
	if dstar {
		d, ok := v.pop().(*Dict)
		if !ok {
			return fmt.Errorf("argument after ** must be a mapping")
		}
		for i, k := range d.keys {
			name, ok := k.(string)
			if !ok {
				return fmt.Errorf("keywords must be strings")
			}
			dstarKwargs = append(dstarKwargs, KwArg{
				Name:  name,
				Value: d.values[i],
			})
		}
	}
	var starArgs []any
	if star {
		elems, err := Elements(v.pop())
		if err != nil {
			return fmt.Errorf("argument after * must be an iterable")
		}
		starArgs = elems
	}
	if kwc > 0 {
		kwargs = make(KwArgs, kwc)
		base := v.SP - 2*kwc
		for i := range kwc {
			kwargs[i] = KwArg{
				Name:  v.OperandStack[base+2*i].(string),
				Value: v.OperandStack[base+2*i+1],
			}
		}
		v.dropTo(base)
	}
	kwargs = append(kwargs, dstarKwargs...)

	args := make([]any, argc, argc+len(starArgs))
	copy(args, v.OperandStack[v.SP-argc:v.SP])
	v.dropTo(v.SP - argc)
	args = append(args, starArgs...)
	callee := v.pop()

	switch fn := callee.(type) {
	case *Closure:
		return v.enter(fn, args, kwargs)
	case NativeFunc:
		ret, err := fn.Call(v, args, kwargs)
		if err != nil {
			return err
		}
		v.push(ret)
		return nil
	case *BoundMethod:
		ret, err := fn.Method.Call(v, append([]any{fn.Self}, args...), kwargs)
		if err != nil {
			return err
		}
		v.push(ret)
		return nil
	}
	return fmt.Errorf("'%s' object is not callable", TypeName(callee))
}
