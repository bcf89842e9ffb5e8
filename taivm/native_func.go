package taivm

import "fmt"

type KwArg struct {
	Name  string
	Value any
}

type KwArgs []KwArg

func (k KwArgs) Lookup(name string) (any, bool) {
	for _, arg := range k {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	return nil, false
}

// Only fails if any keyword is not in names.
func (k KwArgs) Only(fn string, names ...string) error {
outer:
	for _, arg := range k {
		for _, name := range names {
			if arg.Name == name {
				continue outer
			}
		}
		return fmt.Errorf("%s() got an unexpected keyword argument '%s'", fn, arg.Name)
	}
	return nil
}

type NativeFunc struct {
	Name string
	Func func(vm *VM, args []any, kwargs KwArgs) (any, error)
}

func (n NativeFunc) Call(vm *VM, args []any, kwargs KwArgs) (any, error) {
	if n.Func == nil {
		return nil, fmt.Errorf("native function %s is missing", n.Name)
	}
	return n.Func(vm, args, kwargs)
}

type BoundMethod struct {
	Self   any
	Method NativeFunc
}
