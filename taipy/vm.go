package taipy

import (
	_ "embed"
	"sync"

	"github.com/reusee/taitrace/taivm"
)

//go:embed prelude.py
var preludeSource string

var compilePrelude = sync.OnceValues(func() (*taivm.Function, error) {
	return Compile("<prelude>", preludeSource)
})

// NewVM compiles source and returns a VM with builtins installed.
func NewVM(name string, source any) (*taivm.VM, error) {
	main, err := Compile(name, source)
	if err != nil {
		return nil, err
	}
	vm := taivm.NewVM(main)
	if err := installBuiltins(vm); err != nil {
		return nil, err
	}
	return vm, nil
}

func installBuiltins(vm *taivm.VM) error {
	for _, fn := range builtins {
		vm.DefBuiltin(fn.Name, fn)
	}

	prelude, err := compilePrelude()
	if err != nil {
		return err
	}
	pvm := taivm.NewVM(prelude)
	pvm.Builtins = vm.Builtins
	pvm.Globals = vm.Builtins
	for err := range pvm.Run {
		return err
	}
	return nil
}
